// Package store provides access to the person records of the CRM. The
// SQLStore implementation keeps them in a MySQL database.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"gitlab.com/dirk.krummacker/birthday-crm/internal/model"
)

// maxInt is the largest possible int value
const maxInt = int(^uint(0) >> 1)

// ErrNotFound is returned when no person record matches the given id.
var ErrNotFound = errors.New("person not found")

// Store is the data-access contract of the person records. Implementations
// return ErrNotFound for lookups and updates of an unknown id.
type Store interface {
	List(filter Filter) ([]model.Person, error)
	FindByID(id int64) (*model.Person, error)
	Create(person *model.Person) error
	Update(id int64, submitted model.Person) (*model.Person, error)
	Delete(id int64) error
}

// Filter narrows, orders and pages the result of a List call. The zero
// values of NamePrefix, BirthMonth and BirthDay mean "no restriction".
type Filter struct {
	NamePrefix string
	BirthMonth int
	BirthDay   int
	Limit      string
	Offset     string
	OrderBy    string
	Ascending  string
}

// DefaultFilter returns a filter that lists the whole table ordered by id.
func DefaultFilter() Filter {
	return Filter{
		Limit:     fmt.Sprint(maxInt),
		Offset:    "0",
		OrderBy:   "id",
		Ascending: "ASC",
	}
}

// CreateDatabase initializes and returns a database connection. The
// connection parameters are taken from the system's environment variables.
func CreateDatabase() *sql.DB {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/test?parseTime=true",
		os.Getenv("DBUSER"), os.Getenv("DBPWD"), os.Getenv("DBHOST"))
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatal(err)
	}
	return sqlDB
}

// SQLStore implements Store on top of a MySQL database.
type SQLStore struct {
	db *sqlx.DB

	// insert is a prepared statement for creating a person on the database.
	insert *sqlx.NamedStmt

	// selectWhereId is a prepared statement for selecting the person with a
	// given id.
	selectWhereId *sqlx.Stmt

	// deleteWhereId is a prepared statement for deleting the person with a
	// given id.
	deleteWhereId *sqlx.Stmt
}

// NewSQLStore initializes the sqlx database wrapper with the specified sql
// database and prepares all statements. The database argument can be a real
// database for production use or a mock database within unit tests.
func NewSQLStore(sqlDB *sql.DB) *SQLStore {
	var err error
	s := &SQLStore{db: sqlx.NewDb(sqlDB, "mysql")}

	// Prepared statements offer a significant speed increase if executed many times.
	s.insert, err = s.db.PrepareNamed(`
		INSERT INTO people (name, email, phone, birthday, notes)
		VALUES (:name, :email, :phone, :birthday, :notes)
	`)
	if err != nil {
		log.Fatal(err)
	}
	s.selectWhereId, err = s.db.Preparex(`
		SELECT * FROM people WHERE id = ?
	`)
	if err != nil {
		log.Fatal(err)
	}
	s.deleteWhereId, err = s.db.Preparex(`
		DELETE FROM people WHERE id = ?
	`)
	if err != nil {
		log.Fatal(err)
	}
	return s
}

// List returns the person records matching the filter. An empty result is
// not an error.
func (s *SQLStore) List(filter Filter) ([]model.Person, error) {
	var people []model.Person
	var err error
	byName := filter.NamePrefix != ""
	byBirthday := filter.BirthMonth != 0 || filter.BirthDay != 0
	if byName && byBirthday {
		query := fmt.Sprintf(`
			SELECT *
			FROM people
			WHERE name LIKE ?
				AND MONTH(birthday) = ?
				AND DAY(birthday) = ?
			ORDER BY %s %s
			LIMIT ?
			OFFSET ?`, filter.OrderBy, filter.Ascending)
		err = s.db.Select(&people, query,
			filter.NamePrefix+"%", filter.BirthMonth, filter.BirthDay, filter.Limit, filter.Offset)
	} else if byName {
		query := fmt.Sprintf(`
			SELECT *
			FROM people
			WHERE name LIKE ?
			ORDER BY %s %s
			LIMIT ?
			OFFSET ?`, filter.OrderBy, filter.Ascending)
		err = s.db.Select(&people, query, filter.NamePrefix+"%", filter.Limit, filter.Offset)
	} else if byBirthday {
		query := fmt.Sprintf(`
			SELECT *
			FROM people
			WHERE MONTH(birthday) = ?
				AND DAY(birthday) = ?
			ORDER BY %s %s
			LIMIT ?
			OFFSET ?`, filter.OrderBy, filter.Ascending)
		err = s.db.Select(&people, query, filter.BirthMonth, filter.BirthDay, filter.Limit, filter.Offset)
	} else {
		query := fmt.Sprintf(`
			SELECT *
			FROM people
			ORDER BY %s %s
			LIMIT ?
			OFFSET ?`, filter.OrderBy, filter.Ascending)
		err = s.db.Select(&people, query, filter.Limit, filter.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("listing people: %w", err)
	}
	return people, nil
}

// FindByID returns the person record with the given id.
func (s *SQLStore) FindByID(id int64) (*model.Person, error) {
	var people []model.Person
	if err := s.selectWhereId.Select(&people, id); err != nil {
		return nil, fmt.Errorf("selecting person %d: %w", id, err)
	}
	if len(people) == 0 {
		return nil, ErrNotFound
	}
	return &people[0], nil
}

// Create inserts the person into the database and fills in the newly
// assigned id.
func (s *SQLStore) Create(person *model.Person) error {
	result, err := s.insert.Exec(person)
	if err != nil {
		return fmt.Errorf("inserting person: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading inserted id: %w", err)
	}
	person.Id = id
	return nil
}

// Update changes the columns present in the submitted record (and only
// those) and returns the full person after the update. At least one field of
// the submitted record must be set.
func (s *SQLStore) Update(id int64, submitted model.Person) (*model.Person, error) {
	var args []interface{}
	query := "UPDATE people SET "
	if submitted.Name != nil {
		args = append(args, submitted.Name)
		query += "name=?, "
	}
	if submitted.Email != nil {
		args = append(args, submitted.Email)
		query += "email=?, "
	}
	if submitted.Phone != nil {
		args = append(args, submitted.Phone)
		query += "phone=?, "
	}
	if submitted.Birthday != nil {
		args = append(args, submitted.Birthday)
		query += "birthday=?, "
	}
	if submitted.Notes != nil {
		args = append(args, submitted.Notes)
		query += "notes=?, "
	}
	if len(args) == 0 {
		return nil, errors.New("no values to be updated")
	}

	query = query[:len(query)-2]
	query += " WHERE id=?"
	args = append(args, id)
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating person %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating person %d: %w", id, err)
	}
	if rowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.FindByID(id)
}

// Delete removes the person record with the given id from the database.
func (s *SQLStore) Delete(id int64) error {
	result, err := s.deleteWhereId.Exec(id)
	if err != nil {
		return fmt.Errorf("deleting person %d: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting person %d: %w", id, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
