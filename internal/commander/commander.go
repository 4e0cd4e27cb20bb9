package commander

import (
    "bufio"
    "context"
    "fmt"
    "io"
    "sort"
    "strconv"
    "strings"
    "time"

    "github.com/fatih/color"

    "learninghouse/internal/brain"
    "learninghouse/internal/data"
    "learninghouse/internal/fault"
    "learninghouse/internal/jobs"
    "learninghouse/internal/sensors"
)

// Commander is an interactive shell over a brains directory.
type Commander struct {
    brains     *brain.Service
    configs    *brain.ConfigurationService
    sensors    *sensors.Store
    jobManager *jobs.Manager
    out        io.Writer

    green  func(a ...any) string
    red    func(a ...any) string
    yellow func(a ...any) string
    cyan   func(a ...any) string
    blue   func(a ...any) string
}

func NewCommander(brains *brain.Service, configs *brain.ConfigurationService, sensorStore *sensors.Store, out io.Writer) *Commander {
    return &Commander{
        brains:     brains,
        configs:    configs,
        sensors:    sensorStore,
        jobManager: jobs.NewManager(),
        out:        out,
        green:      color.New(color.FgGreen).SprintFunc(),
        red:        color.New(color.FgRed).SprintFunc(),
        yellow:     color.New(color.FgYellow).SprintFunc(),
        cyan:       color.New(color.FgCyan).SprintFunc(),
        blue:       color.New(color.FgBlue).SprintFunc(),
    }
}

func (c *Commander) Start(in io.Reader) {
    c.printWelcome()
    scanner := bufio.NewScanner(in)

    for {
        fmt.Fprint(c.out, c.yellow("\nlh> "))
        if !scanner.Scan() {
            if scanner.Err() != nil {
                fmt.Fprintf(c.out, "\n%s Scanner error: %v\n", c.red("✗"), scanner.Err())
            }
            break
        }

        input := strings.TrimSpace(scanner.Text())
        if input == "" {
            continue
        }

        parts := strings.Fields(input)
        if !c.ExecuteCommand(strings.ToLower(parts[0]), parts[1:]) {
            break
        }
    }
}

// ExecuteCommand runs one command and reports whether the shell goes on.
func (c *Commander) ExecuteCommand(command string, args []string) bool {
    switch command {
    case "help", "h":
        c.showHelp()
    case "brains", "list":
        c.listBrains()
    case "info":
        if len(args) > 0 {
            c.showInfo(args[0])
        } else {
            fmt.Fprintln(c.out, c.red("Usage: info <brain>"))
        }
    case "train":
        if len(args) > 0 {
            c.train(args[0], args[1:])
        } else {
            c.showTrainHelp()
        }
    case "train-bg":
        if len(args) > 0 {
            c.trainBackground(args[0])
        } else {
            fmt.Fprintln(c.out, c.red("Usage: train-bg <brain>"))
        }
    case "predict":
        if len(args) > 0 {
            c.predict(args[0], args[1:])
        } else {
            fmt.Fprintln(c.out, c.red("Usage: predict <brain> <sensor>=<value> ..."))
        }
    case "history":
        if len(args) > 0 {
            c.showHistory(args[0], args[1:])
        } else {
            fmt.Fprintln(c.out, c.red("Usage: history <brain> [limit]"))
        }
    case "sensors":
        c.listSensors()
    case "sensor-add":
        if len(args) == 2 {
            c.addSensor(args[0], args[1])
        } else {
            fmt.Fprintln(c.out, c.red("Usage: sensor-add <name> <numerical|categorical>"))
        }
    case "jobs", "job-status":
        if len(args) > 0 {
            c.showJobStatus(args[0])
        } else {
            c.listAllJobs()
        }
    case "job-cancel":
        if len(args) > 0 {
            c.cancelJob(args[0])
        } else {
            fmt.Fprintln(c.out, c.red("Usage: job-cancel <job-id>"))
        }
    case "job-logs":
        if len(args) > 0 {
            c.showJobLogs(args[0])
        } else {
            fmt.Fprintln(c.out, c.red("Usage: job-logs <job-id>"))
        }
    case "clear", "cls":
        fmt.Fprint(c.out, "\033[H\033[2J")
    case "quit", "exit", "q":
        fmt.Fprintln(c.out, c.cyan("Goodbye!"))
        return false
    default:
        fmt.Fprintf(c.out, "%s Unknown command: %s\n", c.red("✗"), command)
        fmt.Fprintln(c.out, "Type 'help' for available commands")
    }
    return true
}

func (c *Commander) printWelcome() {
    fmt.Fprintln(c.out, c.cyan("╔══════════════════════════════════════════╗"))
    fmt.Fprintln(c.out, c.cyan("║        learningHouse Commander           ║"))
    fmt.Fprintln(c.out, c.cyan("║     Train and ask your house brains      ║"))
    fmt.Fprintln(c.out, c.cyan("╚══════════════════════════════════════════╝"))
    fmt.Fprintln(c.out)
    fmt.Fprintf(c.out, "Brains directory: %s\n", c.brains.Directory())
    fmt.Fprintln(c.out, "Type 'help' for available commands")
}

func (c *Commander) showHelp() {
    fmt.Fprintln(c.out, c.blue("\nAvailable Commands:"))

    fmt.Fprintln(c.out, "\n"+c.cyan("Brains:"))
    fmt.Fprintln(c.out, "  brains                         - List all brains with their state")
    fmt.Fprintln(c.out, "  info <brain>                   - Show information of a brain")
    fmt.Fprintln(c.out, "  history <brain> [limit]        - Show the latest training runs")

    fmt.Fprintln(c.out, "\n"+c.cyan("Training:"))
    fmt.Fprintln(c.out, "  train <brain>                  - Train again with the logged data")
    fmt.Fprintln(c.out, "  train <brain> <s>=<v> ...      - Add an observation and train")
    fmt.Fprintln(c.out, "  train-bg <brain>               - Train again in background")

    fmt.Fprintln(c.out, "\n"+c.cyan("Predictions:"))
    fmt.Fprintln(c.out, "  predict <brain> <s>=<v> ...    - Ask a trained brain")

    fmt.Fprintln(c.out, "\n"+c.cyan("Sensors:"))
    fmt.Fprintln(c.out, "  sensors                        - List the sensor registry")
    fmt.Fprintln(c.out, "  sensor-add <name> <type>       - Register a numerical or categorical sensor")

    fmt.Fprintln(c.out, "\n"+c.cyan("Job Management:"))
    fmt.Fprintln(c.out, "  jobs [job-id]                  - Show job status or list all jobs")
    fmt.Fprintln(c.out, "  job-cancel <job-id>            - Cancel a running job")
    fmt.Fprintln(c.out, "  job-logs <job-id>              - View job logs")

    fmt.Fprintln(c.out, "\n"+c.cyan("System:"))
    fmt.Fprintln(c.out, "  help                           - Show this help message")
    fmt.Fprintln(c.out, "  clear                          - Clear screen")
    fmt.Fprintln(c.out, "  quit                           - Exit program")
}

func (c *Commander) showTrainHelp() {
    fmt.Fprintln(c.out, c.red("Usage: train <brain> [<sensor>=<value> ...]"))
    fmt.Fprintln(c.out, "The dependent value is given as <brain>=<value>, e.g.")
    fmt.Fprintln(c.out, "  train darkness darkness=true elevation=-3.5 azimuth=280")
}

func (c *Commander) fail(err error) {
    fmt.Fprintf(c.out, "%s %s: %s\n", c.red("✗"), fault.KindOf(err), fault.Describe(err))
}

func (c *Commander) listBrains() {
    infos, err := c.brains.ListInfos()
    if err != nil {
        c.fail(err)
        return
    }
    if len(infos) == 0 {
        fmt.Fprintln(c.out, "No brains configured")
        return
    }

    names := make([]string, 0, len(infos))
    for name := range infos {
        names = append(names, name)
    }
    sort.Strings(names)

    fmt.Fprintln(c.out, c.cyan("Brains:"))
    fmt.Fprintln(c.out, strings.Repeat("-", 72))
    fmt.Fprintf(c.out, "%-20s %-12s %-8s %-8s %s\n", "Name", "Estimator", "Rows", "Score", "Trained")
    fmt.Fprintln(c.out, strings.Repeat("-", 72))

    for _, name := range names {
        info := infos[name]
        trained := c.yellow("never")
        score := "-"
        if info.TrainedAt != nil {
            trained = info.TrainedAt.Format("2006-01-02 15:04")
            if !info.ActualVersions {
                trained = c.red(trained + " (outdated)")
            }
            score = fmt.Sprintf("%.4f", info.Score)
        }
        fmt.Fprintf(c.out, "%-20s %-12s %-8d %-8s %s\n",
            name, info.Configuration.Estimator.Typed, info.TrainingDataSize, score, trained)
    }
}

func (c *Commander) showInfo(name string) {
    info, err := c.brains.Info(name)
    if err != nil {
        c.fail(err)
        return
    }
    c.printInfo(info)
}

func (c *Commander) printInfo(info brain.Info) {
    fmt.Fprintf(c.out, "\n%s\n", c.cyan("Brain "+info.Name+":"))
    fmt.Fprintf(c.out, "Estimator:      %s (%d trees, max depth %d)\n",
        info.Configuration.Estimator.Typed, info.Configuration.Estimator.Estimators, info.Configuration.Estimator.MaxDepth)
    fmt.Fprintf(c.out, "Training rows:  %d\n", info.TrainingDataSize)
    if info.TrainedAt == nil {
        fmt.Fprintf(c.out, "Trained:        %s\n", c.yellow("not yet"))
        return
    }
    fmt.Fprintf(c.out, "Trained:        %s\n", info.TrainedAt.Format(time.RFC3339))
    fmt.Fprintf(c.out, "Score:          %s\n", c.green(fmt.Sprintf("%.4f", info.Score)))
    fmt.Fprintf(c.out, "Features:       %s\n", strings.Join(info.Features, ", "))
    if !info.ActualVersions {
        fmt.Fprintf(c.out, "%s trained with %s\n", c.red("⚠ Outdated:"), info.Versions)
    }
}

func (c *Commander) train(name string, args []string) {
    if len(args) == 0 {
        fmt.Fprintf(c.out, "Training %s with the logged observations...\n", name)
        info, err := c.brains.Retrain(context.Background(), name)
        c.reportTraining(info, err)
        return
    }

    observation, err := parseAssignments(args)
    if err != nil {
        fmt.Fprintf(c.out, "%s %v\n", c.red("✗"), err)
        return
    }
    info, err := c.brains.Request(context.Background(), name, nil, observation)
    c.reportTraining(info, err)
}

func (c *Commander) reportTraining(info brain.Info, err error) {
    if fault.KindOf(err) == fault.NotEnoughData {
        fmt.Fprintf(c.out, "%s %s\n", c.yellow("⚠"), fault.Describe(err))
        return
    }
    if err != nil {
        c.fail(err)
        return
    }
    fmt.Fprintf(c.out, "%s Trained %s on %d rows, score %.4f\n", c.green("✓"), info.Name, info.TrainingDataSize, info.Score)
}

func (c *Commander) predict(name string, args []string) {
    observation, err := parseAssignments(args)
    if err != nil {
        fmt.Fprintf(c.out, "%s %v\n", c.red("✗"), err)
        return
    }

    result, err := c.brains.Predict(context.Background(), name, observation)
    if err != nil {
        c.fail(err)
        return
    }

    fmt.Fprintf(c.out, "%s %s\n", c.cyan("Prediction:"), c.green(fmt.Sprint(result.Prediction)))

    columns := make([]string, 0, len(result.Preprocessed))
    for column := range result.Preprocessed {
        columns = append(columns, column)
    }
    sort.Strings(columns)
    for _, column := range columns {
        fmt.Fprintf(c.out, "  %-24s %v\n", column, result.Preprocessed[column])
    }
}

func (c *Commander) showHistory(name string, args []string) {
    limit := 10
    if len(args) > 0 {
        n, err := strconv.Atoi(args[0])
        if err != nil || n <= 0 {
            fmt.Fprintf(c.out, "%s limit must be a positive number\n", c.red("✗"))
            return
        }
        limit = n
    }

    entries, err := c.brains.History(context.Background(), name, limit)
    if err != nil {
        c.fail(err)
        return
    }
    if len(entries) == 0 {
        fmt.Fprintln(c.out, "No training runs recorded")
        return
    }

    fmt.Fprintf(c.out, "%-20s %-8s %-8s %s\n", "Trained", "Rows", "Score", "Duration")
    for _, e := range entries {
        fmt.Fprintf(c.out, "%-20s %-8d %-8.4f %s\n",
            e.TrainedAt.Format("2006-01-02 15:04:05"), e.TrainingDataSize, e.Score, e.Duration.Round(time.Millisecond))
    }
}

func (c *Commander) listSensors() {
    list, err := c.sensors.List()
    if err != nil {
        c.fail(err)
        return
    }
    if len(list) == 0 {
        fmt.Fprintln(c.out, "No sensors registered")
        return
    }
    fmt.Fprintln(c.out, c.cyan("Sensors:"))
    for _, s := range list {
        fmt.Fprintf(c.out, "  %-24s %s\n", s.Name, s.Typed)
    }
}

func (c *Commander) addSensor(name, typed string) {
    sensor, err := c.sensors.Create(sensors.Sensor{Name: name, Typed: sensors.Type(strings.ToLower(typed))})
    if err != nil {
        c.fail(err)
        return
    }
    fmt.Fprintf(c.out, "%s Sensor %s registered as %s\n", c.green("✓"), sensor.Name, sensor.Typed)
}

// parseAssignments reads name=value pairs. Values parse like cells of the
// training data: empty is missing, true/false are booleans, numbers are
// numbers and anything else is a string.
func parseAssignments(args []string) (map[string]any, error) {
    observation := make(map[string]any, len(args))
    for _, arg := range args {
        name, value, ok := strings.Cut(arg, "=")
        if !ok || name == "" {
            return nil, fmt.Errorf("expected <sensor>=<value>, got %q", arg)
        }
        observation[name] = data.ParseValue(value)
    }
    return observation, nil
}
