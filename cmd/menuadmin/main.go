package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	json "github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"

	"github.com/vanderheijden86/menuadmin/pkg/analysis"
	"github.com/vanderheijden86/menuadmin/pkg/config"
	"github.com/vanderheijden86/menuadmin/pkg/export"
	"github.com/vanderheijden86/menuadmin/pkg/menuapi"
	"github.com/vanderheijden86/menuadmin/pkg/model"
	"github.com/vanderheijden86/menuadmin/pkg/store"
	"github.com/vanderheijden86/menuadmin/pkg/tree"
	"github.com/vanderheijden86/menuadmin/pkg/ui"
	"github.com/vanderheijden86/menuadmin/pkg/version"
)

// overrides holds the flags that take precedence over config files and
// environment variables. Empty values leave the config untouched.
type overrides struct {
	backend string
	apiURL  string
	token   string
	dbPath  string
}

// openBackend is replaced in tests to observe cleanup.
var openBackend = openService

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes one invocation and returns the process exit code. Exiting
// only from main lets deferred cleanup (store handle, debug log) run.
func run(args []string) int {
	flags := flag.NewFlagSet("menuadmin", flag.ContinueOnError)
	help := flags.Bool("help", false, "Show help")
	versionFlag := flags.Bool("version", false, "Show version")
	configPath := flags.String("config", "", "Config file (default: .menuadmin/config.yaml, then the user config dir)")
	printConfig := flags.Bool("print-config", false, "Print the merged configuration as YAML and exit")
	backend := flags.String("backend", "", "Menu backend: http or sqlite")
	apiURL := flags.String("api-url", "", "Base URL of the menu API (http backend)")
	token := flags.String("token", "", "Bearer token for the menu API")
	dbPath := flags.String("db", "", "SQLite database file (sqlite backend)")
	printTree := flags.Bool("print", false, "Print the menu tree as a table")
	pathID := flags.String("path", "", "Print the breadcrumb path of a menu")
	asJSON := flags.Bool("json", false, "Output JSON (use with --print or --path)")
	rootID := flags.String("root", "", "Only include the subtree under this root menu")
	exportMD := flags.String("export-md", "", "Export the menu tree to a Markdown file (e.g., menus.md)")
	exportSVG := flags.String("export-svg", "", "Export the menu tree to an SVG file (e.g., menus.svg)")
	seedFile := flags.String("seed", "", "Insert menus from a JSON file (sqlite backend only)")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if *help {
		fmt.Println("Usage: menuadmin [options]")
		fmt.Println("\nA terminal admin for hierarchical menus.")
		flags.PrintDefaults()
		return 0
	}

	if *versionFlag {
		fmt.Printf("menuadmin %s\n", version.Version)
		return 0
	}

	cfg, err := config.Loader{Path: *configPath}.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}
	applyOverrides(&cfg, overrides{backend: *backend, apiURL: *apiURL, token: *token, dbPath: *dbPath})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error in config: %v\n", err)
		return 1
	}

	if *printConfig {
		out, err := cfg.Marshal()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding config: %v\n", err)
			return 1
		}
		if cfg.Source != "" {
			fmt.Printf("# loaded from %s\n", cfg.Source)
		}
		os.Stdout.Write(out)
		return 0
	}

	svc, closeSvc, err := openBackend(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening %s backend: %v\n", cfg.Backend, err)
		return 1
	}
	defer closeSvc()
	fail := func(format string, args ...any) int {
		fmt.Fprintf(os.Stderr, format, args...)
		return 1
	}

	if *seedFile != "" {
		sqlite, ok := svc.(*store.SQLiteStore)
		if !ok {
			return fail("Error: --seed requires the sqlite backend\n")
		}
		forest, err := readSeedFile(*seedFile)
		if err != nil {
			return fail("Error reading seed file: %v\n", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout(cfg))
		err = sqlite.Seed(ctx, forest)
		cancel()
		if err != nil {
			return fail("Error seeding %s: %v\n", sqlite.Path(), err)
		}
		fmt.Printf("Seeded %d menus into %s\n", tree.Count(forest), sqlite.Path())
	}

	nonInteractive := *printTree || *pathID != "" || *exportMD != "" || *exportSVG != ""
	if nonInteractive {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout(cfg))
		forest, err := svc.List(ctx)
		cancel()
		if err != nil {
			return fail("Error loading menus: %v\n", err)
		}
		forest = tree.Normalize(forest)

		if *pathID != "" {
			path := tree.FindPath(forest, *pathID)
			if len(path) == 0 {
				return fail("Error: menu %q not found\n", *pathID)
			}
			if err := writePath(os.Stdout, path, *asJSON); err != nil {
				return fail("Error encoding path: %v\n", err)
			}
		}

		scoped, err := scopeToRoot(forest, *rootID)
		if err != nil {
			return fail("Error: %v\n", err)
		}

		if *printTree {
			if err := writeTree(os.Stdout, scoped, *asJSON); err != nil {
				return fail("Error encoding menus: %v\n", err)
			}
		}

		if *exportMD != "" {
			fmt.Printf("Exporting to %s...\n", *exportMD)
			if err := export.SaveMarkdownToFile(scoped, *exportMD); err != nil {
				return fail("Error exporting: %v\n", err)
			}
			fmt.Println("Done!")
		}

		if *exportSVG != "" {
			fmt.Printf("Exporting to %s...\n", *exportSVG)
			if err := export.SaveSVGToFile(scoped, *exportSVG); err != nil {
				return fail("Error exporting: %v\n", err)
			}
			fmt.Println("Done!")
		}

		return 0
	}

	if *seedFile != "" {
		// Seeding alone is a complete command.
		return 0
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fail("Error: the interactive UI needs a terminal; use --print or --path for scripted output\n")
	}

	logFile, err := setupLogging(os.Getenv("MENUADMIN_DEBUG"))
	if err != nil {
		return fail("Error opening debug log: %v\n", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	stateDir := cfg.StateDir()
	if root, ok := config.DetectProjectRoot(); ok && stateDir == filepath.Join(root, config.DirName) {
		if err := config.EnsureStateIgnored(root); err != nil {
			log.Printf("warning: updating .gitignore: %v", err)
		}
	}

	workerCfg := ui.WorkerConfig{Service: svc, LoadTimeout: loadTimeout(cfg)}
	if cfg.Backend == config.BackendSQLite {
		workerCfg.WatchPath = cfg.SQLite.Path
	} else {
		workerCfg.PollInterval = cfg.UI.RefreshInterval
	}
	worker, err := ui.NewBackgroundWorker(workerCfg)
	if err != nil {
		return fail("Error starting background worker: %v\n", err)
	}

	m := ui.NewModel(ui.Options{
		Service:       svc,
		Worker:        worker,
		StrictParents: cfg.UI.StrictParents,
		StateDir:      stateDir,
		Backend:       cfg.Backend,
		LoadTimeout:   loadTimeout(cfg),
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	worker.SetProgram(p)
	if err := worker.Start(); err != nil {
		log.Printf("warning: background refresh disabled: %v", err)
	}

	_, runErr := p.Run()
	worker.Stop()
	if runErr != nil {
		return fail("Error running menuadmin: %v\n", runErr)
	}
	return 0
}

func applyOverrides(cfg *config.Config, o overrides) {
	if o.backend != "" {
		cfg.Backend = strings.ToLower(strings.TrimSpace(o.backend))
	}
	if o.apiURL != "" {
		cfg.API.BaseURL = o.apiURL
	}
	if o.token != "" {
		cfg.API.Token = o.token
	}
	if o.dbPath != "" {
		cfg.SQLite.Path = o.dbPath
	}
}

// openService builds the configured backend. The returned close func is
// always safe to call.
func openService(cfg config.Config) (menuapi.Service, func(), error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		s, err := store.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, func() {}, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				log.Printf("warning: closing %s: %v", s.Path(), err)
			}
		}, nil
	default:
		c, err := menuapi.NewClient(cfg.API.BaseURL,
			menuapi.WithToken(cfg.API.Token),
			menuapi.WithTimeout(cfg.API.Timeout),
			menuapi.WithUserAgent(version.UserAgent()),
		)
		if err != nil {
			return nil, func() {}, err
		}
		return c, func() {}, nil
	}
}

func loadTimeout(cfg config.Config) time.Duration {
	if cfg.API.Timeout > 0 {
		return 3 * cfg.API.Timeout
	}
	return 30 * time.Second
}

// readSeedFile accepts either a nested forest or a flat listing with
// parentId references.
func readSeedFile(path string) ([]model.MenuNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var nodes []model.MenuNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%s contains no menus", path)
	}
	for _, n := range nodes {
		if n.ParentID != nil {
			return tree.Normalize(nodes), nil
		}
	}
	// No parent references: already a forest, and ids may be blank.
	return nodes, nil
}

func scopeToRoot(forest []model.MenuNode, rootID string) ([]model.MenuNode, error) {
	if rootID == "" {
		return forest, nil
	}
	scoped := tree.FilterRoot(forest, rootID)
	if len(scoped) == 0 {
		return nil, fmt.Errorf("root menu %q not found", rootID)
	}
	return scoped, nil
}

// pathOutput is the JSON shape of --path --json.
type pathOutput struct {
	ID         string           `json:"id"`
	Breadcrumb string           `json:"breadcrumb"`
	Path       []tree.PathEntry `json:"path"`
}

func writePath(w io.Writer, path []tree.PathEntry, asJSON bool) error {
	crumb := tree.FormatPath(path, ui.BreadcrumbSeparator)
	if !asJSON {
		_, err := fmt.Fprintln(w, crumb)
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(pathOutput{
		ID:         path[len(path)-1].ID,
		Breadcrumb: crumb,
		Path:       path,
	})
}

// treeOutput is the JSON shape of --print --json.
type treeOutput struct {
	GeneratedAt time.Time         `json:"generated_at"`
	DataHash    string            `json:"data_hash"`
	Stats       analysis.Stats    `json:"stats"`
	Options     []tree.FlatOption `json:"options"`
}

func writeTree(w io.Writer, forest []model.MenuNode, asJSON bool) error {
	options := tree.Flatten(forest)
	if asJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(treeOutput{
			GeneratedAt: time.Now().UTC(),
			DataHash:    analysis.ComputeDataHash(forest),
			Stats:       analysis.ComputeStats(forest),
			Options:     options,
		})
	}

	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader([]string{"ID", "Menu", "Depth"})
	tbl.SetAutoWrapText(false)
	for _, opt := range options {
		tbl.Append([]string{opt.ID, opt.Label, fmt.Sprintf("%d", opt.Depth)})
	}
	tbl.Render()
	_, err := fmt.Fprintln(w, analysis.ComputeStats(forest).Summary())
	return err
}

// setupLogging routes the standard logger away from the terminal. With
// debug set ("1" or a file path) it appends to a log file instead.
func setupLogging(debug string) (*os.File, error) {
	if debug == "" || debug == "0" {
		log.SetOutput(io.Discard)
		return nil, nil
	}
	path := debug
	if path == "1" || strings.EqualFold(path, "true") {
		path = "menuadmin-debug.log"
	}
	return tea.LogToFile(path, "menuadmin")
}
