package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gitlab.com/dirk.krummacker/birthday-crm/internal/service"
	"gitlab.com/dirk.krummacker/birthday-crm/internal/store"
)

// Usage example on the command line:
// > PORT=8080 DBUSER=dirk DBPWD=bullo92 GIN_MODE=release GIN_LOGGING=OFF go run main.go
func main() {
	_ = godotenv.Load()
	sqlDB := store.CreateDatabase()
	people := store.NewSQLStore(sqlDB)
	router := service.SetupHttpRouter(people)
	_, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		fmt.Println("could not parse PORT env variable", err)
		panic(err)
	}
	router.Run(":" + os.Getenv("PORT"))
}
