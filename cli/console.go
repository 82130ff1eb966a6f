package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"taskwing/store"
)

const consoleUser = "console"

// newConsoleCmd runs a local, in-memory task shell. Nothing persists
// after exit; it needs no server, no credentials and no broker.
func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Run a local in-memory task shell",
		Long:  "Manage tasks interactively without a server. Tasks are not persisted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConsole(os.Stdin)
		},
	}
}

func runConsole(in *os.File) error {
	st := store.NewMemoryStore()
	defer st.Close()

	title := color.New(color.FgCyan, color.Bold)
	title.Println("TaskWing Console")
	fmt.Println("Tasks are stored in memory and will not persist after exit.")
	fmt.Println(`Type "help" for commands.`)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, " ", 2)
		command := fields[0]
		rest := ""
		if len(fields) > 1 {
			rest = strings.TrimSpace(fields[1])
		}

		switch command {
		case "help":
			printConsoleHelp()
		case "add":
			consoleAdd(st, rest)
		case "list":
			consoleList(st)
		case "update":
			consoleUpdate(st, rest)
		case "toggle":
			consoleToggle(st, rest)
		case "delete":
			consoleDelete(st, rest)
		case "search":
			consoleSearch(st, rest)
		case "quit", "exit":
			fmt.Println("Your tasks will not be saved. Bye!")
			return nil
		default:
			color.Red("Unknown command %q. Type \"help\" for commands.", command)
		}
	}
}

func printConsoleHelp() {
	fmt.Println(`Commands:
  add <title> [| description]   Add a task
  list                          Show all tasks
  update <id> <new title>       Rename a task
  toggle <id>                   Flip completion status
  delete <id>                   Remove a task
  search <keyword>              Find tasks by keyword
  quit                          Exit`)
}

func consoleAdd(st store.Store, rest string) {
	title, description := rest, ""
	if i := strings.Index(rest, "|"); i >= 0 {
		title = strings.TrimSpace(rest[:i])
		description = strings.TrimSpace(rest[i+1:])
	}
	if strings.TrimSpace(title) == "" {
		color.Red("Title is required")
		return
	}
	if len(title) > 200 {
		color.Red("Title must be 200 characters or less")
		return
	}

	task := &store.Task{UserID: consoleUser, Title: strings.TrimSpace(title), Description: description}
	if err := st.CreateTask(task); err != nil {
		color.Red("could not add task: %v", err)
		return
	}
	color.Green("Added task %d: %s", task.ID, task.Title)
}

func consoleList(st store.Store) {
	tasks, err := st.ListTasks(consoleUser)
	if err != nil {
		color.Red("could not list tasks: %v", err)
		return
	}
	printTaskTable(tasks)
}

func printTaskTable(tasks []*store.Task) {
	if len(tasks) == 0 {
		fmt.Println("No tasks yet! Add your first task to get started.")
		return
	}

	fmt.Printf("%-4s  %-6s  %s\n", "ID", "Done", "Title")
	completed := 0
	for _, t := range tasks {
		mark := "○"
		if t.Completed {
			mark = "✓"
			completed++
		}
		line := fmt.Sprintf("%-4d  %-6s  %s", t.ID, mark, t.Title)
		if t.Description != "" {
			line += "  - " + t.Description
		}
		fmt.Println(line)
	}
	fmt.Printf("Total: %d tasks (%d completed, %d pending)\n", len(tasks), completed, len(tasks)-completed)
}

func consoleTaskID(rest string) (int64, string, bool) {
	fields := strings.SplitN(rest, " ", 2)
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || id <= 0 {
		color.Red("Expected a numeric task ID")
		return 0, "", false
	}
	tail := ""
	if len(fields) > 1 {
		tail = strings.TrimSpace(fields[1])
	}
	return id, tail, true
}

func consoleUpdate(st store.Store, rest string) {
	id, title, ok := consoleTaskID(rest)
	if !ok {
		return
	}
	if title == "" {
		color.Red("Usage: update <id> <new title>")
		return
	}
	if len(title) > 200 {
		color.Red("Title must be 200 characters or less")
		return
	}

	task, err := st.GetTask(consoleUser, id)
	if err == store.ErrNotFound {
		color.Red("Task with ID %d not found", id)
		return
	}
	if err != nil {
		color.Red("could not update task: %v", err)
		return
	}
	task.Title = title
	if err := st.UpdateTask(task); err != nil {
		color.Red("could not update task: %v", err)
		return
	}
	color.Green("Updated task %d", id)
}

func consoleToggle(st store.Store, rest string) {
	id, _, ok := consoleTaskID(rest)
	if !ok {
		return
	}

	task, err := st.GetTask(consoleUser, id)
	if err == store.ErrNotFound {
		color.Red("Task with ID %d not found", id)
		return
	}
	if err != nil {
		color.Red("could not toggle task: %v", err)
		return
	}
	task.Completed = !task.Completed
	if err := st.UpdateTask(task); err != nil {
		color.Red("could not toggle task: %v", err)
		return
	}
	if task.Completed {
		color.Green("Task '%s' marked as completed 🎉", task.Title)
	} else {
		fmt.Printf("Task '%s' marked as incomplete\n", task.Title)
	}
}

func consoleDelete(st store.Store, rest string) {
	id, _, ok := consoleTaskID(rest)
	if !ok {
		return
	}
	err := st.DeleteTask(consoleUser, id)
	if err == store.ErrNotFound {
		color.Red("Task with ID %d not found", id)
		return
	}
	if err != nil {
		color.Red("could not delete task: %v", err)
		return
	}
	color.Green("Task %d deleted successfully", id)
}

func consoleSearch(st store.Store, rest string) {
	keyword := strings.ToLower(strings.TrimSpace(rest))
	if keyword == "" {
		color.Red("Keyword cannot be empty")
		return
	}

	tasks, err := st.ListTasks(consoleUser)
	if err != nil {
		color.Red("could not search tasks: %v", err)
		return
	}
	var matches []*store.Task
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), keyword) ||
			strings.Contains(strings.ToLower(t.Description), keyword) {
			matches = append(matches, t)
		}
	}
	if len(matches) == 0 {
		fmt.Printf("No tasks matching %q\n", rest)
		return
	}
	printTaskTable(matches)
}
