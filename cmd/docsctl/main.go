// Command docsctl runs operator tasks against the documents database.
package main

func main() {
	Execute()
}
