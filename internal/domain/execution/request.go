package execution

// Request is a single unit of code to execute.
type Request struct {
	Language Language
	Source   string
	Stdin    string
}
