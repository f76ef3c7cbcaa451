package main

import (
	"log"

	"github.com/greecode/admin-portal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
