package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/docopt/docopt-go"

	"github.com/bringyour/remoteview/endpoint"
	"github.com/bringyour/remoteview/mirror"
	"github.com/bringyour/remoteview/model"
	"github.com/bringyour/remoteview/selection"
)

const RemoteViewCtlVersion = "0.0.1"

const DefaultProbeUrl = "ws://127.0.0.1:8077/remoteview"

const ModelObjectName = "demo.model"
const SelectionObjectName = "demo.selection"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := fmt.Sprintf(
		`Remote view control.

The probe serves a demo tree and its selection. The observer mirrors the tree
and keeps its selection in sync with the probe. Both read commands from stdin:
    select <row> [<last_row>]   select top level rows
    deselect <row> [<last_row>]
    current [<row>]             set the current row, or clear it
    clear                       clear the selection
    insert <count>              append top level rows (probe)
    remove <row> [<count>]      remove top level rows (probe)
    show                        print rows and selection

The default url is:
    url: %s

Usage:
    remoteviewctl probe [--port=<port>] [--rows=<rows>] [--secret=<secret> | --prompt_secret]
    remoteviewctl observe [--url=<url>] [--secret=<secret> | --prompt_secret]

Options:
    -h --help          Show this screen.
    --version          Show version.
    --url=<url>        Probe url.
    --secret=<secret>  Shared auth secret.
    --prompt_secret    Read the shared auth secret from the terminal.
    --rows=<rows>      Initial demo rows [default: 20].
    -p --port=<port>   Listen port [default: 8077].`,
		DefaultProbeUrl,
	)

	opts, err := docopt.ParseArgs(usage, os.Args[1:], RemoteViewCtlVersion)
	if err != nil {
		panic(err)
	}

	if probe_, _ := opts.Bool("probe"); probe_ {
		probe(opts)
	} else if observe_, _ := opts.Bool("observe"); observe_ {
		observe(opts)
	}
}

func settings(opts docopt.Opts) *endpoint.Settings {
	settings := endpoint.DefaultSettings()
	if secret, err := opts.String("--secret"); err == nil && secret != "" {
		settings.AuthSecret = []byte(secret)
	} else if prompt, _ := opts.Bool("--prompt_secret"); prompt {
		fmt.Print("Enter secret: ")
		secretBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			panic(err)
		}
		fmt.Printf("\n")
		settings.AuthSecret = secretBytes
	}
	return settings
}

func demoRows(prefix string, first int, count int) []model.Row {
	rows := make([]model.Row, count)
	for i := 0; i < count; i += 1 {
		row := first + i
		rows[i] = model.NewRow(fmt.Sprintf("%s%d", prefix, row), strconv.Itoa(row*row)).WithChildren(
			model.NewRow(fmt.Sprintf("%s%d.a", prefix, row), "a"),
			model.NewRow(fmt.Sprintf("%s%d.b", prefix, row), "b"),
		)
	}
	return rows
}

func probe(opts docopt.Opts) {
	port, _ := opts.Int("--port")
	rowCount, _ := opts.Int("--rows")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer cancel()

	probe := endpoint.NewProbe(ctx, settings(opts))
	defer probe.Close()

	treeModel := model.NewTreeModel(2)
	treeModel.Reset(demoRows("row", 0, rowCount)...)

	var selectionModel *selection.NetworkSelectionModel
	probe.Invoke(func() {
		modelServer := mirror.NewModelServer(ModelObjectName, treeModel, probe)
		selectionModel = selection.NewNetworkSelectionModel(SelectionObjectName, treeModel, probe)
		for _, object := range []endpoint.Object{modelServer, selectionModel} {
			if err := probe.RegisterObject(object); err != nil {
				panic(err)
			}
		}
	})

	mux := http.NewServeMux()
	mux.Handle("/remoteview", probe)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		defer cancel()
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			Err.Printf("listen error: %s", err)
		}
	}()

	Out.Printf("Probe %s on ws://*:%d/remoteview", RemoteViewCtlVersion, port)

	go func() {
		defer cancel()
		runCommands(probe.Endpoint, treeModel, selectionModel, true)
	}()

	<-ctx.Done()
	server.Shutdown(context.Background())
}

func observe(opts docopt.Opts) {
	url := DefaultProbeUrl
	if urlStr, err := opts.String("--url"); err == nil && urlStr != "" {
		url = urlStr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer cancel()

	observer := endpoint.Dial(ctx, url, settings(opts))
	defer observer.Close()

	var remoteModel *mirror.RemoteModel
	var selectionModel *selection.NetworkSelectionModel
	observer.Invoke(func() {
		remoteModel = mirror.NewRemoteModel(ModelObjectName, observer)
		selectionModel = selection.NewNetworkSelectionModel(SelectionObjectName, remoteModel.TreeModel, observer)
		selectionModel.AddListener(&model.SelectionListenerFuncs{
			Selection: func(selected model.Selection, deselected model.Selection) {
				Out.Printf("selection +%s -%s", selected, deselected)
			},
			Current: func(current model.Index, previous model.Index, kind model.CurrentChangeKind) {
				if kind == model.CurrentChangeItem {
					Out.Printf("current %s", current)
				}
			},
		})
		for _, object := range []endpoint.Object{remoteModel, selectionModel} {
			if err := observer.RegisterObject(object); err != nil {
				panic(err)
			}
		}
	})

	Out.Printf("Observer %s of %s (%s)", RemoteViewCtlVersion, url, observer.ObserverId())

	go func() {
		defer cancel()
		runCommands(observer.Endpoint, remoteModel.TreeModel, selectionModel, false)
	}()

	<-ctx.Done()
}

// reads commands until stdin closes. each command runs on the endpoint loop
func runCommands(e *endpoint.Endpoint, treeModel *model.TreeModel, selectionModel *selection.NetworkSelectionModel, editable bool) {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		var err error
		ok := e.Invoke(func() {
			err = runCommand(fields, treeModel, selectionModel, editable)
		})
		if !ok {
			return
		}
		if err != nil {
			Err.Printf("%s", err)
		}
	}
}

func runCommand(fields []string, treeModel *model.TreeModel, selectionModel *selection.NetworkSelectionModel, editable bool) error {
	args := make([]int, 0, len(fields)-1)
	for _, field := range fields[1:] {
		arg, err := strconv.Atoi(field)
		if err != nil {
			return fmt.Errorf("Bad argument %s", field)
		}
		args = append(args, arg)
	}
	argOr := func(i int, defaultArg int) int {
		if i < len(args) {
			return args[i]
		}
		return defaultArg
	}

	root := model.Index{}
	rowRange := func() (model.Selection, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("Missing row")
		}
		first := treeModel.Index(args[0], 0, root)
		last := treeModel.Index(argOr(1, args[0]), 0, root)
		if !first.IsValid() || !last.IsValid() {
			return nil, fmt.Errorf("Rows out of range [0, %d)", treeModel.RowCount(root))
		}
		return model.Selection{model.NewRange(first, last)}, nil
	}

	switch command := fields[0]; command {
	case "select", "deselect":
		ranges, err := rowRange()
		if err != nil {
			return err
		}
		flags := model.Select | model.Rows
		if command == "deselect" {
			flags = model.Deselect | model.Rows
		}
		selectionModel.Select(ranges, flags)
	case "current":
		if len(args) == 0 {
			selectionModel.ClearCurrentIndex()
			return nil
		}
		index := treeModel.Index(args[0], 0, root)
		if !index.IsValid() {
			return fmt.Errorf("Row out of range [0, %d)", treeModel.RowCount(root))
		}
		selectionModel.SetCurrentIndex(index, model.Current)
	case "clear":
		selectionModel.ClearSelection()
	case "insert":
		if !editable {
			return fmt.Errorf("The mirrored model is read only")
		}
		count := argOr(0, 1)
		if count <= 0 {
			return fmt.Errorf("Count must be positive")
		}
		rowCount := treeModel.RowCount(root)
		return treeModel.AppendRows(root, demoRows("row", rowCount, count)...)
	case "remove":
		if !editable {
			return fmt.Errorf("The mirrored model is read only")
		}
		count := argOr(1, 1)
		if count <= 0 {
			return fmt.Errorf("Count must be positive")
		}
		return treeModel.RemoveRows(root, argOr(0, 0), count)
	case "show":
		show(treeModel, selectionModel)
	default:
		return fmt.Errorf("Unknown command %s", command)
	}
	return nil
}

func show(treeModel *model.TreeModel, selectionModel *selection.NetworkSelectionModel) {
	root := model.Index{}
	current := selectionModel.CurrentIndex()
	for row := 0; row < treeModel.RowCount(root); row += 1 {
		index := treeModel.Index(row, 0, root)
		mark := " "
		if selectionModel.IsSelected(index) {
			mark = "*"
		}
		cursor := " "
		if current.IsValid() && current.Row() == row && !current.Parent().IsValid() {
			cursor = ">"
		}
		Out.Printf("%s%s %4d %-12s %s", cursor, mark, row, index.Data(), treeModel.Index(row, 1, root).Data())
	}
	if selectionModel.HasPendingSelection() {
		Out.Printf("(pending selection)")
	}
	Out.Printf("address %s", selectionModel.ObjectAddress())
}
