package main

import "planhub_backend/internal/app"

func main() {
	app.Run()
}
