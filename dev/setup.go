package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	devenv "tarjomic-watch/dev/env"
	"tarjomic-watch/internal/orderstore"
)

const marketplaceConfigTemplate = `{
  // credentials of a marketplace account used by the browser integration test
  base_url: "https://tarjomic.com",
  email: "",
  password: "",
  // leave empty to let rod download chromium
  browser_bin: "",
}
`

// CreateMarketplaceConfig writes a template for the browser integration test config,
// an existing file is left alone.
func CreateMarketplaceConfig() error {
	path, err := devenv.GetStateFilePath("marketplace_config.json5")
	if err != nil {
		return err
	}
	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("marketplace config already exists at", path)
		return nil
	}

	fmt.Println("writing marketplace config template to", path)
	return os.WriteFile(path, []byte(marketplaceConfigTemplate), 0600)
}

// CreateEmptyOrderState creates the sqlite order state used with
// `state: { driver: "sqlite", path: "<dev_state>/orders.db" }`.
func CreateEmptyOrderState() error {
	path, err := devenv.ResolvePath("<dev_state>/orders.db")
	if err != nil {
		return err
	}

	_, err = os.Stat(path)
	if err == nil {
		fmt.Println("order state already created at", path)
		return nil
	}

	fmt.Println("creating order state at", path)
	db, err := orderstore.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Save(context.Background(), map[string][]orderstore.OrderID{})
}

func PrintConfigLocations() {
	slog.Info("fill in dev/.state/marketplace_config.json5 to run the browser integration test, it is skipped otherwise (see `go test -v ./internal/marketplace`).")
}
