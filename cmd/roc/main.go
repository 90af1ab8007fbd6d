// Package main implements the robot orchestration container entry point.
package main

func main() {
	Execute()
}
