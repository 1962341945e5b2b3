// studylock - terminal client for the StudyLock dashboard
package main

import "github.com/studylock/studylock/internal/cli"

func main() {
	cli.Execute()
}
