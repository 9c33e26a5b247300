package main

import (
	"cardiobrief/cmd/handlers"
	"cardiobrief/internal/logger"
)

func main() {
	logger.Init()
	handlers.Execute()
}
