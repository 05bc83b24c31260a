package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"

	"launchpad/config"
	"launchpad/core/events"
	"launchpad/core/state"
	"launchpad/native/presale"
	"launchpad/observability/logging"
	"launchpad/storage"
)

const usageText = `launchpadd <command> [flags]

Commands:
  init        bootstrap the platform registry from the config file
  create      register a presale from a YAML sale definition
  show        print a creator's sale schedule as JSON
  allocation  print a purchaser's allocation record as JSON
`

func main() {
	logger := logging.Setup("launchpadd", os.Getenv("LAUNCHPAD_ENV"))
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(logger, os.Args[2:])
	case "create":
		err = runCreate(logger, os.Args[2:])
	case "show":
		err = runShow(os.Args[2:])
	case "allocation":
		err = runAllocation(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func openState(configPath string) (*config.Config, *state.Manager, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open state database: %w", err)
	}
	closer := func() {
		if err := db.Close(); err != nil {
			slog.Warn("closing state database", "error", err)
		}
	}
	return cfg, state.NewManager(db), closer, nil
}

// logEmitter forwards engine events to the structured logger so operators see
// what a command actually did.
type logEmitter struct {
	logger *slog.Logger
}

func (l logEmitter) Emit(evt events.Event) {
	if l.logger == nil || evt == nil {
		return
	}
	l.logger.Info("engine event", "type", evt.EventType())
}

func newEngine(logger *slog.Logger, manager *state.Manager) *presale.Engine {
	engine := presale.NewEngine()
	engine.SetState(manager)
	engine.SetEmitter(logEmitter{logger: logger})
	return engine
}

func runInit(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "./launchpad.toml", "path to the configuration file")
	fs.Parse(args)

	cfg, manager, closer, err := openState(*configPath)
	if err != nil {
		return err
	}
	defer closer()

	platform, err := cfg.PlatformConfig()
	if err != nil {
		return err
	}
	if platform.PlatformWallet == ([20]byte{}) {
		return fmt.Errorf("refusing to bootstrap with the zero platform wallet; set Platform.Wallet")
	}
	engine := newEngine(logger, manager)
	created, err := engine.InitializePlatform(platform.PlatformWallet, platform.FeeAsset, platform.FeeSplitBps, platform.CreationFeeNormal, platform.CreationFeeSpecial)
	if errors.Is(err, presale.ErrAlreadyInitialized) {
		logger.Info("platform registry already initialized")
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("platform registry initialized",
		"wallet", cfg.Platform.Wallet,
		"feeAsset", created.FeeAsset,
		"feeSplitBps", created.FeeSplitBps)
	return nil
}

func runCreate(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	configPath := fs.String("config", "./launchpad.toml", "path to the configuration file")
	definitionPath := fs.String("definition", "", "path to the YAML sale definition")
	fs.Parse(args)
	if *definitionPath == "" {
		return fmt.Errorf("--definition is required")
	}

	def, err := LoadSaleDefinition(*definitionPath)
	if err != nil {
		return err
	}
	params, err := def.Params()
	if err != nil {
		return err
	}

	_, manager, closer, err := openState(*configPath)
	if err != nil {
		return err
	}
	defer closer()

	engine := newEngine(logger, manager)
	sale, err := engine.CreatePresale(def.CreatorAddress(), params)
	if err != nil {
		return err
	}
	logger.Info("presale created",
		"schedule", fmt.Sprintf("%x", sale.ID),
		"creator", def.Creator,
		"newAsset", sale.NewAsset,
		"startTime", sale.StartTime,
		"endTime", sale.EndTime())
	return nil
}

func runShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", "./launchpad.toml", "path to the configuration file")
	creatorHex := fs.String("creator", "", "creator address of the sale")
	fs.Parse(args)
	if !common.IsHexAddress(*creatorHex) {
		return fmt.Errorf("--creator must be a hex address")
	}

	_, manager, closer, err := openState(*configPath)
	if err != nil {
		return err
	}
	defer closer()

	sale, ok, err := manager.PresaleGet(presale.ScheduleID(common.HexToAddress(*creatorHex)))
	if err != nil {
		return err
	}
	if !ok {
		return presale.ErrPresaleNotFound
	}
	return printJSON(sale)
}

func runAllocation(args []string) error {
	fs := flag.NewFlagSet("allocation", flag.ExitOnError)
	configPath := fs.String("config", "./launchpad.toml", "path to the configuration file")
	creatorHex := fs.String("creator", "", "creator address of the sale")
	userHex := fs.String("user", "", "purchaser address")
	fs.Parse(args)
	if !common.IsHexAddress(*creatorHex) || !common.IsHexAddress(*userHex) {
		return fmt.Errorf("--creator and --user must be hex addresses")
	}

	_, manager, closer, err := openState(*configPath)
	if err != nil {
		return err
	}
	defer closer()

	schedule := presale.ScheduleID(common.HexToAddress(*creatorHex))
	alloc, ok, err := manager.AllocationGet(schedule, common.HexToAddress(*userHex))
	if err != nil {
		return err
	}
	if !ok {
		return presale.ErrAllocationNotFound
	}
	return printJSON(alloc)
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
