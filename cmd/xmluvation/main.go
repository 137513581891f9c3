package main

// main is the entry point for the xmluvation CLI. Build-time variables
// (version, commit, date) are declared in root.go and populated via -ldflags.
func main() {
	Execute()
}
