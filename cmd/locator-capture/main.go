package main

import "locator-capture/internal/bootstrap"

func main() {
	bootstrap.NewApp().Run()
}
