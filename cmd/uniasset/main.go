// Command uniasset runs portfolio operations from the shell: address
// classification, wallet sync, AI parsing and advice, quotes and catalog
// lookups.
package main

import (
	"context"
	"flag"
	"os"
	"sort"
	"strings"

	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"uniasset/internal/config"
	"uniasset/pkg/uniasset"
)

func main() {
	// Answers shell completion requests (COMP_LINE) and exits.
	completion().Complete("uniasset")

	_ = config.LoadDotEnv()
	a := newApp()
	commander := newCommander(flag.CommandLine, a)
	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// completion describes the command line for shell completion.
func completion() *complete.Command {
	chains := make(predict.Set, 0, len(uniasset.Chains))
	for _, c := range uniasset.Chains {
		chains = append(chains, string(c))
	}
	global := map[string]complete.Predictor{
		"demo":       predict.Set{"true", "false"},
		"sync-delay": predict.Something,
		"log-level":  predict.Set{"debug", "info", "warn", "error"},
	}
	return &complete.Command{
		Flags: global,
		Sub: map[string]*complete.Command{
			"classify": {Args: predict.Something},
			"sync": {
				Flags: map[string]complete.Predictor{"chain": chains},
				Args:  predict.Something,
			},
			"parse": {
				Flags: map[string]complete.Predictor{"image": predict.Files("*")},
				Args:  predict.Something,
			},
			"quote":   {Args: complete.PredictFunc(predictSymbols)},
			"suggest": {Flags: map[string]complete.Predictor{"platforms": predict.Nothing}, Args: predict.Something},
			"ask": {
				Flags: map[string]complete.Predictor{
					"style": predict.Set{"auto", "dark", "light", "notty", "ascii"},
					"width": predict.Something,
				},
				Args: predict.Something,
			},
			"help":  {Args: predict.Set{"classify", "sync", "parse", "quote", "suggest", "ask"}},
			"flags": {},
		},
	}
}

// predictSymbols completes catalog tickers by prefix.
func predictSymbols(prefix string) []string {
	var out []string
	upper := strings.ToUpper(prefix)
	for _, s := range uniasset.Symbols() {
		if strings.HasPrefix(s.Symbol, upper) {
			out = append(out, s.Symbol)
		}
	}
	sort.Strings(out)
	return out
}
