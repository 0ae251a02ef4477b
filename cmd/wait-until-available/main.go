package main

import (
	"fmt"
	"net/http"
	"time"
)

// Polls the people service until it answers, so that dependent steps in a
// compose or CI setup can wait for it. The upcoming endpoint answers OK even
// on an empty database.
func main() {
	totalWaitTime := 0
	for {
		res, err := http.Get("http://localhost:8080/people/upcoming")
		if err == nil {
			if res.StatusCode == http.StatusOK {
				fmt.Println(res)
				break
			} else {
				fmt.Println(res)
			}
		} else {
			fmt.Println(err)
		}
		totalWaitTime += 5
		fmt.Printf("Waiting %d seconds", totalWaitTime)
		fmt.Println()
		time.Sleep(5 * time.Second)
	}
}
