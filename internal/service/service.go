// Package service exposes the CRM's people records over a REST API. The
// endpoints serve the single-page frontend: the people table with derived
// birthday values, the upcoming-birthdays view, and the create/edit form.
package service

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/birthday-crm/internal/birthday"
	"gitlab.com/dirk.krummacker/birthday-crm/internal/model"
	"gitlab.com/dirk.krummacker/birthday-crm/internal/store"
)

// people is the data access used by all handlers.
var people store.Store

// nowFunc returns the reference instant for all derived birthday values.
// Tests replace it with a fixed clock.
var nowFunc = time.Now

// allowedOrderby are the allowed values for the 'orderby' URL parameter.
var allowedOrderby = []string{"id", "name", "email", "phone", "birthday"}

// allowedAscending are the allowed values for the 'ascending' URL parameter.
var allowedAscending = []string{"true", "false"}

// personView is a person record decorated with the derived values shown in
// the frontend table: age, days until the next birthday, and the date of the
// next birthday.
type personView struct {
	model.Person
	Age          *int    `json:"age,omitempty"`
	DaysUntil    *int    `json:"daysuntil,omitempty"`
	NextBirthday *string `json:"nextbirthday,omitempty"`
}

// createRequest is the body of a POST call. The frontend form requires name
// and birthday and validates the email syntax.
type createRequest struct {
	Name     *string    `json:"name"     binding:"required"`
	Email    *string    `json:"email"    binding:"omitempty,email"`
	Phone    *string    `json:"phone"`
	Birthday *time.Time `json:"birthday" binding:"required"`
	Notes    *string    `json:"notes"`
}

// updateRequest is the body of a PUT call. All fields are optional; only the
// submitted ones are changed.
type updateRequest struct {
	Name     *string    `json:"name"`
	Email    *string    `json:"email" binding:"omitempty,email"`
	Phone    *string    `json:"phone"`
	Birthday *time.Time `json:"birthday"`
	Notes    *string    `json:"notes"`
}

// SetupHttpRouter initializes the REST API router and registers all
// endpoints. The frontend is served from a different origin, so the router
// answers CORS preflights for it.
func SetupHttpRouter(s store.Store) *gin.Engine {
	people = s
	var router *gin.Engine
	if strings.EqualFold(os.Getenv("GIN_LOGGING"), "off") {
		fmt.Println("Turning off HTTP request logging.")
		router = gin.New()
		router.Use(gin.Recovery())
	} else {
		router = gin.Default()
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}))
	router.GET("/people", findPeople)
	router.GET("/people/upcoming", findUpcoming)
	router.POST("/people", createPerson)
	router.GET("/people/:id", findPersonByID)
	router.PUT("/people/:id", updatePersonByID)
	router.DELETE("/people/:id", deletePersonByID)
	return router
}

// findPeople responds with a list of people as JSON. Every record carries
// the derived age, daysuntil and nextbirthday values next to the stored
// fields.
//
// The URL parameter 'name' is interpreted as the beginning of the name of
// the person.
//
// The URL parameter 'birthday' consists of a month part and a day part,
// separated by '-'. The call returns all people that have their birthday on
// this month and day, regardless of the year.
//
// The URL parameter 'limit' specifies how many people matching the search
// criteria are returned. The URL parameter 'offset' specifies how many items
// from the sorted list of results are skipped in the beginning. Together
// with the 'limit' parameter, one can implement search result paging.
//
// The URL parameter 'orderby' specifies the property by which the results
// shall be sorted. Valid values are 'id', 'name', 'email', 'phone', and
// 'birthday'. If this URL parameter is not specified, the people will be
// sorted by id.
//
// If the URL parameter 'ascending' is set to 'false' then the sort order is
// reversed, starting with the 'highest' value. If it is set to 'true', or if
// this URL parameter is omitted, the result starts with the lowest value.
//
// REST API calls:
//
//	> curl "http://localhost:8080/people"
//	> curl "http://localhost:8080/people?name=Ji"
//	> curl "http://localhost:8080/people?birthday=11-29"
//	> curl "http://localhost:8080/people?limit=20&offset=60"
//	> curl "http://localhost:8080/people?orderby=birthday&ascending=false"
func findPeople(c *gin.Context) {
	filter := store.DefaultFilter()
	var success bool
	filter.NamePrefix, filter.BirthDay, filter.BirthMonth, success = parseNameAndBirthday(c)
	if !success {
		return
	}
	filter.Limit, filter.Offset, success = parseLimitAndOffset(c)
	if !success {
		return
	}
	filter.OrderBy, filter.Ascending, success = parseOrderbyAndAscending(c)
	if !success {
		return
	}
	records, err := people.List(filter)
	if err != nil {
		log.Panicln(err)
	}
	if len(records) == 0 {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "person not found"})
		return
	}
	views, ok := toViews(c, records)
	if !ok {
		return
	}
	c.IndentedJSON(http.StatusOK, views)
}

// findUpcoming responds with the people whose birthday occurs within the
// next days, today included. The window defaults to 30 days and can be
// chosen with the 'window' URL parameter. An empty result is a valid answer,
// not an error. The order of the records follows the id order of the table.
//
// REST API calls:
//
//	> curl "http://localhost:8080/people/upcoming"
//	> curl "http://localhost:8080/people/upcoming?window=7"
func findUpcoming(c *gin.Context) {
	window, success := parseWindow(c)
	if !success {
		return
	}
	records, err := people.List(store.DefaultFilter())
	if err != nil {
		log.Panicln(err)
	}
	upcoming, err := birthday.Upcoming(records, nowFunc(), window)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "invalid birthday data"})
		return
	}
	views, ok := toViews(c, upcoming)
	if !ok {
		return
	}
	c.IndentedJSON(http.StatusOK, views)
}

// findPersonByID locates the person whose ID value matches the id parameter
// of the request URL, then returns that person as a response.
//
// Example REST API call:
//
//	> curl http://localhost:8080/people/56
func findPersonByID(c *gin.Context) {
	id, success := parseID(c)
	if !success {
		return
	}
	person, err := people.FindByID(id)
	if errors.Is(err, store.ErrNotFound) {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "person not found"})
		return
	}
	if err != nil {
		log.Panicln(err)
	}
	view, ok := toView(c, *person)
	if !ok {
		return
	}
	c.IndentedJSON(http.StatusOK, view)
}

// createPerson inserts the person specified in the request's JSON into the
// database. It responds with the full person data including the newly
// assigned id. The name and birthday fields are required, the birthday must
// not lie in the future, and the email must be syntactically valid when
// present.
//
// Example REST API call:
//
//	> curl http://localhost:8080/people --request "POST" --include --header "Content-Type: application/json" --data '{"name": "Hans Wurst", "phone": "0815", "birthday": "1969-03-02T00:00:00Z"}'
func createPerson(c *gin.Context) {
	var request createRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	if _, err := birthday.Age(*request.Birthday, nowFunc()); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "birthday must not be in the future"})
		return
	}
	person := model.Person{
		Name:     request.Name,
		Email:    request.Email,
		Phone:    request.Phone,
		Birthday: request.Birthday,
		Notes:    request.Notes,
	}
	if err := people.Create(&person); err != nil {
		log.Panicln(err)
	}
	view, ok := toView(c, person)
	if !ok {
		return
	}
	c.IndentedJSON(http.StatusCreated, view)
}

// updatePersonByID updates the person whose ID value matches the id
// parameter of the request URL, updates the values specified in the JSON
// (and only those), and finally responds with the new version of the person.
//
// Example REST API calls:
//
//	> curl http://localhost:8080/people/56 --request "PUT" --include --header "Content-Type: application/json" --data '{"phone": "81970"}'
//	> curl http://localhost:8080/people/56 --request "PUT" --include --header "Content-Type: application/json" --data '{"birthday": "1972-06-06T00:00:00Z"}'
func updatePersonByID(c *gin.Context) {
	id, success := parseID(c)
	if !success {
		return
	}
	var request updateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	submitted := model.Person{
		Name:     request.Name,
		Email:    request.Email,
		Phone:    request.Phone,
		Birthday: request.Birthday,
		Notes:    request.Notes,
	}

	// It only makes sense to continue if we have at least one value to update.
	if submitted.Name == nil && submitted.Email == nil && submitted.Phone == nil &&
		submitted.Birthday == nil && submitted.Notes == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "no values to be updated"})
		return
	}
	if submitted.Birthday != nil {
		if _, err := birthday.Age(*submitted.Birthday, nowFunc()); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "birthday must not be in the future"})
			return
		}
	}

	person, err := people.Update(id, submitted)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "person not found"})
		return
	}
	if err != nil {
		log.Panicln(err)
	}
	view, ok := toView(c, *person)
	if !ok {
		return
	}
	c.IndentedJSON(http.StatusOK, view)
}

// deletePersonByID deletes the person whose ID value matches the id
// parameter of the request URL from the database.
//
// Example REST API call:
//
//	> curl http://localhost:8080/people/56 --request "DELETE"
func deletePersonByID(c *gin.Context) {
	id, success := parseID(c)
	if !success {
		return
	}
	err := people.Delete(id)
	if errors.Is(err, store.ErrNotFound) {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "person not found"})
		return
	}
	if err != nil {
		log.Panicln(err)
	}
	c.IndentedJSON(http.StatusOK, gin.H{"message": "person deleted"})
}

// parseID inspects the id parameter of the request URL.
func parseID(c *gin.Context) (id int64, success bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "invalid id parameter"})
		return 0, false
	}
	return id, true
}

// parseNameAndBirthday inspects the URL parameters and determines values for
// the name prefix and the day and month of the person's birthday.
func parseNameAndBirthday(c *gin.Context) (name string, bday int, bmonth int, success bool) {
	name = c.Query("name")
	bdayParam := c.Query("birthday")
	if bdayParam != "" {
		var err error
		before, after, found := strings.Cut(bdayParam, "-")
		if !found {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid birthday URL parameter"})
			return "", 0, 0, false
		}
		bmonth, err = strconv.Atoi(before)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid birthday URL parameter"})
			return "", 0, 0, false
		}
		bday, err = strconv.Atoi(after)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid birthday URL parameter"})
			return "", 0, 0, false
		}
	}
	return name, bday, bmonth, true
}

// parseLimitAndOffset inspects the URL parameters and determines values for
// limit and offset of the result set.
func parseLimitAndOffset(c *gin.Context) (limit string, offset string, success bool) {
	limit = c.Query("limit")
	offset = c.Query("offset")
	if limit != "" {
		limitAsInt, errConv := strconv.Atoi(limit)
		if errConv != nil || limitAsInt < 1 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid limit parameter"})
			return "", "", false
		}
	} else {
		limit = store.DefaultFilter().Limit
	}
	if offset != "" {
		offsetAsInt, errConv := strconv.Atoi(offset)
		if errConv != nil || offsetAsInt < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid offset parameter"})
			return "", "", false
		}
	} else {
		offset = "0"
	}
	return limit, offset, true
}

// parseOrderbyAndAscending inspects the URL parameters and determines values
// for the orderby and ascending values of the result set.
func parseOrderbyAndAscending(c *gin.Context) (orderby string, ascending string, success bool) {
	orderby = c.Query("orderby")
	if orderby == "" {
		orderby = "id"
	}
	if !contains(allowedOrderby, orderby) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid orderby parameter"})
		return "", "", false
	}
	ascendingAsString := c.Query("ascending")
	if ascendingAsString == "" {
		ascendingAsString = "true"
	}
	if !contains(allowedAscending, ascendingAsString) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid ascending parameter"})
		return orderby, "", false
	}
	if ascendingAsString == "true" {
		ascending = "ASC"
	} else {
		ascending = "DESC"
	}
	return orderby, ascending, true
}

// parseWindow inspects the 'window' URL parameter of the upcoming endpoint.
func parseWindow(c *gin.Context) (window int, success bool) {
	windowParam := c.Query("window")
	if windowParam == "" {
		return birthday.DefaultWindowDays, true
	}
	window, err := strconv.Atoi(windowParam)
	if err != nil || window < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid window parameter"})
		return 0, false
	}
	return window, true
}

// contains returns true if a string is present in a slice.
func contains(slice []string, str string) bool {
	for _, v := range slice {
		if v == str {
			return true
		}
	}
	return false
}

// toView decorates a person record with its derived birthday values. A
// stored birthday later than the current instant is reported as a server
// error, never corrected.
func toView(c *gin.Context, person model.Person) (personView, bool) {
	view := personView{Person: person}
	if person.Birthday == nil {
		return view, true
	}
	now := nowFunc()
	age, err := birthday.Age(*person.Birthday, now)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "invalid birthday data"})
		return personView{}, false
	}
	days, err := birthday.DaysUntil(*person.Birthday, now)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "invalid birthday data"})
		return personView{}, false
	}
	occurrence, err := birthday.NextOccurrence(*person.Birthday, now)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "invalid birthday data"})
		return personView{}, false
	}
	next := occurrence.Format(time.DateOnly)
	view.Age = &age
	view.DaysUntil = &days
	view.NextBirthday = &next
	return view, true
}

// toViews decorates a list of person records.
func toViews(c *gin.Context, records []model.Person) ([]personView, bool) {
	views := make([]personView, 0, len(records))
	for _, person := range records {
		view, ok := toView(c, person)
		if !ok {
			return nil, false
		}
		views = append(views, view)
	}
	return views, true
}
