package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"uniasset/pkg/uniasset"
)

// classifyCmd reports the chain each address belongs to.
type classifyCmd struct {
	app *app
}

func (*classifyCmd) Name() string     { return "classify" }
func (*classifyCmd) Synopsis() string { return "detect the blockchain of wallet addresses" }
func (*classifyCmd) Usage() string {
	return `uniasset classify <address>...

  Prints the chain of each address, or "invalid" when the format matches none.
`
}

func (*classifyCmd) SetFlags(*flag.FlagSet) {}

func (c *classifyCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprint(c.app.stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	status := subcommands.ExitSuccess
	for _, address := range f.Args() {
		chain, ok := uniasset.ClassifyAddress(strings.TrimSpace(address))
		if !ok {
			fmt.Fprintf(c.app.stdout, "%s\tinvalid\n", address)
			status = subcommands.ExitFailure
			continue
		}
		fmt.Fprintf(c.app.stdout, "%s\t%s\n", address, chain)
	}
	return status
}

// syncCmd connects a wallet and prints the synthesized holdings.
type syncCmd struct {
	app   *app
	chain string
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "fetch the holdings of a wallet address" }
func (*syncCmd) Usage() string {
	return `uniasset sync [-chain <chain>] <address>

  Connects the wallet and prints its holdings. Without -chain the chain is
  detected from the address format.
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.chain, "chain", "", "Chain of the address (Ethereum, Solana, Bitcoin, Polygon)")
}

func (c *syncCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(c.app.stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	var chain uniasset.Chain
	if c.chain != "" {
		parsed, ok := uniasset.ParseChain(c.chain)
		if !ok {
			fmt.Fprintf(c.app.stderr, "Error: unsupported chain %q\n", c.chain)
			return subcommands.ExitUsageError
		}
		chain = parsed
	}

	return c.app.withCore(ctx, func(ctx context.Context, core *uniasset.Core) error {
		wallet, assets, err := core.ConnectWallet(ctx, f.Arg(0), chain)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.stdout, "%s (%s)\n", wallet.Address, wallet.Chain)
		printAssets(c.app, assets)
		return nil
	})
}

func printAssets(a *app, assets []uniasset.Asset) {
	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "SYMBOL\tQUANTITY\tPRICE\tVALUE\t")
	total := uniasset.Amount{}
	for _, asset := range assets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
			asset.Symbol,
			asset.Quantity.String(),
			uniasset.FormatMoney(asset.UnitPrice, asset.Currency),
			uniasset.FormatMoney(asset.TotalValue, asset.Currency),
		)
		total = total.Add(asset.TotalValue)
	}
	fmt.Fprintf(w, "TOTAL\t\t\t%s\t\n", uniasset.FormatMoney(total, "USD"))
	_ = w.Flush()
}

// parseCmd turns free text and an optional screenshot into an asset draft.
type parseCmd struct {
	app   *app
	image string
}

func (*parseCmd) Name() string     { return "parse" }
func (*parseCmd) Synopsis() string { return "read an asset description with the AI gateway" }
func (*parseCmd) Usage() string {
	return `uniasset parse [-image <file>] <text>...

  Prints the asset draft read from the description and/or image as JSON.
`
}

func (c *parseCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.image, "image", "", "Screenshot or statement image to read")
}

func (c *parseCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	text := strings.Join(f.Args(), " ")
	var image *uniasset.ImageInput
	if c.image != "" {
		data, err := os.ReadFile(c.image)
		if err != nil {
			fmt.Fprintf(c.app.stderr, "Error reading image %q: %v\n", c.image, err)
			return subcommands.ExitFailure
		}
		image = &uniasset.ImageInput{MIMEType: http.DetectContentType(data), Data: data}
	}
	if strings.TrimSpace(text) == "" && image == nil {
		fmt.Fprint(c.app.stderr, c.Usage())
		return subcommands.ExitUsageError
	}

	return c.app.withCore(ctx, func(ctx context.Context, core *uniasset.Core) error {
		draft, err := core.ParseDraft(ctx, uniasset.NewDraft(), text, image)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(c.app.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(draft)
	})
}

// quoteCmd prints the market price of a symbol.
type quoteCmd struct {
	app *app
}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "look up the market price of a symbol" }
func (*quoteCmd) Usage() string {
	return `uniasset quote <symbol>

  Tries CoinGecko, then Yahoo Finance, then the AI gateway.
`
}

func (*quoteCmd) SetFlags(*flag.FlagSet) {}

func (c *quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprint(c.app.stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	return c.app.withCore(ctx, func(ctx context.Context, core *uniasset.Core) error {
		quote, err := core.LookupQuote(ctx, f.Arg(0))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.stdout, "%s\t%s\t%s\n", quote.Symbol, uniasset.FormatMoney(quote.Price, "USD"), quote.Source)
		return nil
	})
}

// suggestCmd lists catalog matches for autocomplete.
type suggestCmd struct {
	app       *app
	platforms bool
}

func (*suggestCmd) Name() string     { return "suggest" }
func (*suggestCmd) Synopsis() string { return "suggest known symbols or platforms" }
func (*suggestCmd) Usage() string {
	return `uniasset suggest [-platforms] <query>
`
}

func (c *suggestCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.platforms, "platforms", false, "Suggest platforms instead of symbols")
}

func (c *suggestCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	query := strings.Join(f.Args(), " ")
	if c.platforms {
		for _, p := range uniasset.SuggestPlatforms(query) {
			fmt.Fprintln(c.app.stdout, p)
		}
		return subcommands.ExitSuccess
	}
	for _, s := range uniasset.SuggestSymbols(query) {
		fmt.Fprintf(c.app.stdout, "%s\t%s\t%s\n", s.Symbol, s.Name, s.ProductType)
	}
	return subcommands.ExitSuccess
}

// askCmd sends one question to the advisor and renders the markdown answer.
type askCmd struct {
	app   *app
	style string
	width int
}

func (*askCmd) Name() string     { return "ask" }
func (*askCmd) Synopsis() string { return "ask the AI advisor about the portfolio" }
func (*askCmd) Usage() string {
	return `uniasset ask [-style <name>] [-width <n>] <question>...

  Answers about the demonstration portfolio unless -demo=false.
`
}

func (c *askCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.style, "style", "auto", "Glamour style: auto, dark, light, notty, ascii")
	f.IntVar(&c.width, "width", 80, "Word wrap width")
}

func (c *askCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	question := strings.Join(f.Args(), " ")
	if strings.TrimSpace(question) == "" {
		fmt.Fprint(c.app.stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	return c.app.withCore(ctx, func(ctx context.Context, core *uniasset.Core) error {
		reply, err := core.SendMessage(ctx, question)
		if err != nil {
			return err
		}
		out, err := renderMarkdown(reply.Text, c.style, c.width)
		if err != nil {
			return err
		}
		fmt.Fprint(c.app.stdout, out)
		return nil
	})
}

func renderMarkdown(text, style string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("markdown renderer: %w", err)
	}
	return r.Render(text)
}
