// Command linectl runs the line/document reconciliation steps offline over
// JSON files, for inspecting what the service would build, save or group.
package main

func main() {
	Execute()
}
