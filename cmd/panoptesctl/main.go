package main

import "os"

var AppVersion string

func main() {
	os.Exit(Execute())
}
