package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hvaldez/taskforge/internal/config"
	"github.com/hvaldez/taskforge/internal/db"
	"github.com/hvaldez/taskforge/internal/engine"
	"github.com/hvaldez/taskforge/internal/log"
	"github.com/hvaldez/taskforge/internal/model"
)

func main() {
	configPathFlag := flag.String("config", "", "config file path")
	dbPathFlag := flag.String("db", "", "sqlite db path")
	userFlag := flag.Int64("user", 0, "acting user id")
	flag.Parse()

	cfgPath, err := resolveConfigPath(*configPathFlag)
	if err != nil {
		fatal(err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal(err)
	}
	if *dbPathFlag != "" {
		cfg.DBPath = *dbPathFlag
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(filepath.Dir(cfgPath), "taskforge.db")
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		fatal(err)
	}

	logger := log.New(log.Config{Level: cfg.LogLevel, Format: log.Format(cfg.LogFormat)})

	if err := config.EnsureDir(cfg.DBPath); err != nil {
		fatal(err)
	}
	sqlDB, err := db.Open(cfg.DBPath)
	if err != nil {
		fatal(err)
	}
	defer sqlDB.Close()
	store := db.NewStore(sqlDB)

	eng := engine.New(engine.Deps{
		Tasks:    store.Tasks,
		Projects: store.Projects,
		Users:    store.Users,
		Hours:    store.Hours,
		Notifier: store.Notifications,
		Logger:   logger,
	})

	app := &app{engine: eng, store: store, userID: *userFlag}
	if err := app.run(context.Background(), flag.Args()); err != nil {
		fatal(err)
	}
}

type app struct {
	engine *engine.Engine
	store  *db.Store
	userID int64
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: taskforge [-user id] <list|show|create|update|complete|hours|seed-user|seed-project>")
	}

	switch args[0] {
	case "list":
		return a.list(ctx, args[1:])
	case "show":
		return a.show(ctx, args[1:])
	case "create":
		return a.create(ctx, args[1:])
	case "update":
		return a.update(ctx, args[1:])
	case "complete":
		return a.complete(ctx, args[1:])
	case "hours":
		return a.hours(ctx, args[1:])
	case "seed-user":
		return a.seedUser(ctx, args[1:])
	case "seed-project":
		return a.seedProject(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	status := fs.String("status", "", "filter by status")
	tags := fs.String("tags", "", "filter by comma-separated tags")
	project := fs.Int64("project", 0, "filter by project id")
	sortBy := fs.String("sort", "", "sort field")
	archived := fs.Bool("archived", false, "include archived tasks")
	if err := fs.Parse(args); err != nil {
		return err
	}

	principal, err := a.principal(ctx)
	if err != nil {
		return err
	}

	filter := model.Filter{Status: *status, SortBy: *sortBy, IncludeArchived: *archived}
	if *tags != "" {
		filter.Tags = strings.Split(*tags, ",")
	}
	if *project != 0 {
		filter.ProjectID = project
	}

	tasks, err := a.engine.List(ctx, principal, filter)
	if err != nil {
		return err
	}
	return printJSON(tasks)
}

func (a *app) show(ctx context.Context, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	task, err := a.engine.Get(ctx, id)
	if err != nil {
		return err
	}
	history, err := a.engine.History(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(struct {
		Task    model.Task           `json:"task"`
		History []model.HistoryEntry `json:"history"`
	}{task, history})
}

func (a *app) create(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	title := fs.String("title", "", "task title")
	description := fs.String("description", "", "task description")
	project := fs.Int64("project", 0, "project id")
	parent := fs.Int64("parent", 0, "parent task id")
	priority := fs.String("priority", "", "priority 1-10 or low/medium/high")
	assignees := fs.String("assignees", "", "comma-separated assignee ids")
	tags := fs.String("tags", "", "comma-separated tags")
	deadline := fs.String("deadline", "", "deadline (YYYY-MM-DD)")
	freq := fs.String("every", "", "recurrence: daily, weekly or monthly")
	interval := fs.Int("interval", 1, "recurrence interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := engine.TaskInput{Title: title}
	if *description != "" {
		in.Description = description
	}
	if *project != 0 {
		in.ProjectID = project
	}
	if *parent != 0 {
		in.ParentID = parent
	}
	if *priority != "" {
		in.Priority = parsePriorityFlag(*priority)
	}
	if *assignees != "" {
		in.AssignedTo = splitAny(*assignees)
	}
	if *tags != "" {
		in.Tags = *tags
	}
	if *deadline != "" {
		in.Deadline = deadline
	}
	if *freq != "" {
		in.Recurrence = &engine.RecurrenceInput{Freq: *freq, Interval: *interval}
		in.RecurrenceSet = true
	}

	task, err := a.engine.Create(ctx, a.userID, in)
	if err != nil {
		return err
	}
	return printJSON(task)
}

func (a *app) update(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: update <id> [flags]")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid task id %q", args[0])
	}

	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	title := fs.String("title", "", "task title")
	status := fs.String("status", "", "task status")
	priority := fs.String("priority", "", "priority 1-10 or low/medium/high")
	assignees := fs.String("assignees", "", "comma-separated assignee ids")
	tags := fs.String("tags", "", "comma-separated tags")
	deadline := fs.String("deadline", "", "deadline (YYYY-MM-DD), 'none' to clear")
	hours := fs.Float64("hours", -1, "log hours for the acting user")
	archive := fs.Bool("archive", false, "archive the task")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	var in engine.TaskInput
	if *title != "" {
		in.Title = title
	}
	if *status != "" {
		in.Status = status
	}
	if *priority != "" {
		in.Priority = parsePriorityFlag(*priority)
	}
	if *assignees != "" {
		in.AssignedTo = splitAny(*assignees)
	}
	if *tags != "" {
		in.Tags = *tags
	}
	if *deadline != "" {
		in.DeadlineSet = true
		if *deadline != "none" {
			in.Deadline = deadline
		}
	}
	if *hours >= 0 {
		in.Hours = *hours
	}
	if *archive {
		in.Archived = archive
	}

	task, err := a.engine.Update(ctx, a.userID, id, in)
	if err != nil {
		return err
	}
	return printJSON(task)
}

func (a *app) complete(ctx context.Context, args []string) error {
	id, err := argID(args)
	if err != nil {
		return err
	}
	status := string(model.StatusCompleted)
	task, err := a.engine.Update(ctx, a.userID, id, engine.TaskInput{Status: &status})
	if err != nil {
		return err
	}
	return printJSON(task)
}

func (a *app) hours(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: hours <task id> <hours>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid task id %q", args[0])
	}
	hours, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid hours %q", args[1])
	}

	summary, err := a.engine.RecordHours(ctx, a.userID, id, hours)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

func (a *app) seedUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("seed-user", flag.ContinueOnError)
	id := fs.Int64("id", 0, "user id")
	name := fs.String("name", "", "display name")
	role := fs.String("role", "staff", "role: admin, manager or staff")
	rank := fs.Int("rank", 0, "hierarchy rank")
	division := fs.String("division", "", "division")
	department := fs.String("department", "", "department")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == 0 {
		return fmt.Errorf("seed-user: -id is required")
	}

	principal := model.Principal{
		ID:         *id,
		Role:       model.Role(*role),
		Hierarchy:  *rank,
		Division:   *division,
		Department: *department,
	}
	if err := a.store.Users.SaveUser(ctx, principal, *name); err != nil {
		return err
	}
	return printJSON(principal)
}

func (a *app) seedProject(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("seed-project", flag.ContinueOnError)
	name := fs.String("name", "", "project name")
	status := fs.String("status", model.ProjectActive, "project status")
	creator := fs.Int64("creator", 0, "creator user id")
	managers := fs.String("managers", "", "comma-separated manager ids")
	members := fs.String("members", "", "comma-separated member ids")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *creator == 0 {
		return fmt.Errorf("seed-project: -name and -creator are required")
	}

	project, err := a.store.Projects.SaveProject(ctx, model.Project{
		Name:      *name,
		Status:    *status,
		CreatorID: *creator,
	})
	if err != nil {
		return err
	}
	for _, id := range parseIDList(*managers) {
		if err := a.store.Projects.AddProjectManager(ctx, project.ID, id); err != nil {
			return err
		}
	}
	for _, id := range parseIDList(*members) {
		if err := a.store.Projects.AddProjectMember(ctx, project.ID, id); err != nil {
			return err
		}
	}
	return printJSON(project)
}

func (a *app) principal(ctx context.Context) (model.Principal, error) {
	if a.userID == 0 {
		return model.Principal{}, fmt.Errorf("-user is required")
	}
	return a.store.Users.GetByID(ctx, a.userID)
}

func argID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("expected exactly one task id argument")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid task id %q", args[0])
	}
	return id, nil
}

// parsePriorityFlag keeps numeric flags numeric so the validator sees an
// integer, while legacy aliases pass through as strings.
func parsePriorityFlag(value string) any {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	return value
}

func splitAny(csv string) []any {
	parts := strings.Split(csv, ",")
	values := make([]any, 0, len(parts))
	for _, part := range parts {
		values = append(values, part)
	}
	return values
}

func parseIDList(csv string) []int64 {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	var ids []int64
	for _, part := range strings.Split(csv, ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func printJSON(payload any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
