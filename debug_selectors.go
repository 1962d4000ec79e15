package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/pozitronik/viscrapper/adapters"
	"github.com/pozitronik/viscrapper/internal/types"
	"github.com/pozitronik/viscrapper/page"
)

// Selector probe: runs an adapter's selector table field by field against a
// live URL or a saved HTML file and prints what matched. First stop when a
// store redesign breaks extraction.
func main() {
	urlFlag := flag.String("url", "", "Product page URL (required)")
	fileFlag := flag.String("file", "", "Probe a saved HTML file instead of a live page")
	flag.Parse()

	if *urlFlag == "" {
		log.Fatal("--url flag is required")
	}

	config := types.DefaultConfig()
	logger := &debugLogger{}

	adapter, err := adapters.ForURL(*urlFlag, config, logger)
	if err != nil {
		log.Fatalf("No adapter for %s: %v", *urlFlag, err)
	}

	ctx := context.Background()

	var pg types.Page
	if *fileFlag != "" {
		static, err := page.NewStaticPageFromFile(*fileFlag, *urlFlag)
		if err != nil {
			log.Fatalf("Failed to load %s: %v", *fileFlag, err)
		}
		pg = static
	} else {
		chrome, err := page.NewChromePage(ctx, *urlFlag, config, logger)
		if err != nil {
			log.Fatalf("Failed to open page: %v", err)
		}
		defer chrome.Close()
		pg = chrome
	}

	fmt.Printf("=== %s ===\n", adapter.Name())
	fmt.Printf("Product page: %v\n", adapter.IsProductPage(ctx, pg))
	fmt.Printf("Sanitized URL: %s\n", adapter.SanitizeURL(*urlFlag))
	fmt.Println()

	probe("sku", func() (string, error) { return adapter.ExtractSKU(ctx, pg) })
	probe("name", func() (string, error) { return adapter.ExtractName(ctx, pg) })
	probe("price", func() (string, error) {
		price, err := adapter.ExtractPrice(ctx, pg)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%.2f", *price), nil
	})
	probe("currency", func() (string, error) { return adapter.ExtractCurrency(ctx, pg) })
	probe("availability", func() (string, error) {
		availability, err := adapter.ExtractAvailability(ctx, pg)
		return string(availability), err
	})
	probe("color", func() (string, error) { return adapter.ExtractColor(ctx, pg) })
	probe("composition", func() (string, error) { return adapter.ExtractComposition(ctx, pg) })
	probe("item", func() (string, error) { return adapter.ExtractItem(ctx, pg) })
	probe("base id", func() (string, error) { return adapter.BaseProductID(ctx, pg) })

	probeList("images", func() ([]string, error) { return adapter.ExtractImageURLs(ctx, pg) })
	probeList("sizes", func() ([]string, error) { return adapter.ExtractSizes(ctx, pg) })

	caps := adapter.Capabilities()
	if caps.MultiColor {
		fmt.Println()
		group, err := adapter.ColorOptions(ctx, pg)
		if err != nil {
			fmt.Printf("colors         MISS (%v)\n", err)
		} else {
			dumpOptions("colors", group)
		}
	}
	if caps.MultiSize {
		fmt.Println()
		primary, secondary := adapter.SizeAxes(pg)
		dumpAxis(ctx, "primary axis", primary)
		dumpAxis(ctx, "secondary axis", secondary)
	}
}

func probe(name string, fn func() (string, error)) {
	value, err := fn()
	if err != nil {
		fmt.Printf("%-14s MISS (%v)\n", name, err)
		return
	}
	fmt.Printf("%-14s %q\n", name, value)
}

func probeList(name string, fn func() ([]string, error)) {
	values, err := fn()
	if err != nil {
		fmt.Printf("%-14s MISS (%v)\n", name, err)
		return
	}
	fmt.Printf("%-14s %d found\n", name, len(values))
	for i, value := range values {
		fmt.Printf("  %d: %s\n", i+1, value)
	}
}

func dumpAxis(ctx context.Context, name string, reader types.OptionReader) {
	if reader == nil {
		fmt.Printf("%-14s not configured\n", name)
		return
	}
	group, err := reader(ctx)
	if err != nil {
		fmt.Printf("%-14s MISS (%v)\n", name, err)
		return
	}
	dumpOptions(name, group)
}

func dumpOptions(name string, group types.OptionGroup) {
	fmt.Printf("%s (label %q): %d options\n", name, group.DisplayLabel(), len(group.Options))
	for i, opt := range group.Options {
		state := "enabled"
		if !opt.Enabled {
			state = "disabled"
		}
		if opt.Selected {
			state += ", selected"
		}
		fmt.Printf("  %d: value=%q code=%q label=%q (%s)\n", i+1, opt.Value, opt.Code, opt.Label, state)
	}
}

type debugLogger struct{}

func (d *debugLogger) Debug(args ...interface{})                 { fmt.Println(args...) }
func (d *debugLogger) Info(args ...interface{})                  { fmt.Println(args...) }
func (d *debugLogger) Warn(args ...interface{})                  { fmt.Println(args...) }
func (d *debugLogger) Error(args ...interface{})                 { fmt.Println(args...) }
func (d *debugLogger) Debugf(format string, args ...interface{}) { fmt.Printf(format+"\n", args...) }
func (d *debugLogger) Infof(format string, args ...interface{})  { fmt.Printf(format+"\n", args...) }
func (d *debugLogger) Warnf(format string, args ...interface{})  { fmt.Printf(format+"\n", args...) }
func (d *debugLogger) Errorf(format string, args ...interface{}) { fmt.Printf(format+"\n", args...) }
