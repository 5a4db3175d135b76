package main

import "github.com/studentdesk/frontdesk/cmd"

func main() {
	cmd.Execute()
}
