// Command lifestatsctl is a terminal client for a lifestats server.
package main

func main() {
	Execute()
}
