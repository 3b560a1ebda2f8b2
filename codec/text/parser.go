// Package text implements the codec for the primary, line-oriented ledger
// dialect. Directives begin with a date and a keyword; transactions carry
// indented postings and metadata lines. The codec is a pure function on
// bytes and produces byte-offset spans that are stable across reparses.
package text

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/codec"
	"github.com/robinvdvleuten/zhang/codec/internal/scan"
)

func init() {
	codec.Register(func() codec.DataType { return &DataType{} }, "zhang")
}

// DataType is the primary dialect codec.
type DataType struct{}

var _ codec.DataType = (*DataType)(nil)

// ParseError is a fatal parse failure with its source location.
type ParseError struct {
	Source string
	Line   int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Msg)
}

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
var timeRe = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?$`)

// Transform parses the dialect into spanned directives.
func (d *DataType) Transform(content []byte, source string) ([]ast.Spanned, error) {
	lines := scan.SplitLines(content)
	var directives []ast.Spanned

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line.Text)
		if trimmed == "" || scan.IsIndented(line.Text) {
			continue
		}

		if strings.HasPrefix(trimmed, ";") {
			directives = append(directives, ast.NewSpanned(
				&ast.Comment{Content: trimmed},
				ast.SpanInfo{Start: line.Start, End: line.End, Content: line.Text, Filename: source},
			))
			continue
		}

		// Collect the indented continuation block.
		var block []scan.Line
		end := line.End
		for j := i + 1; j < len(lines); j++ {
			if !scan.IsIndented(lines[j].Text) || strings.TrimSpace(lines[j].Text) == "" {
				break
			}
			block = append(block, lines[j])
			end = lines[j].End
			i = j
		}

		directive, err := parseDirective(line, block)
		if err != nil {
			return nil, &ParseError{Source: source, Line: line.Number, Msg: err.Error()}
		}

		directives = append(directives, ast.NewSpanned(directive, ast.SpanInfo{
			Start:    line.Start,
			End:      end,
			Content:  string(content[line.Start:end]),
			Filename: source,
		}))
	}

	return directives, nil
}

func parseDirective(line scan.Line, block []scan.Line) (ast.Directive, error) {
	tokens, err := scan.Tokenize(line.Text)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty directive")
	}

	if tokens[0].Kind == scan.Word && !dateRe.MatchString(tokens[0].Text) {
		return parseUndated(tokens, block)
	}

	date, err := ast.ParseDate(tokens[0].Text)
	if err != nil {
		return nil, err
	}
	rest := tokens[1:]
	if len(rest) > 0 && rest[0].Kind == scan.Word && timeRe.MatchString(rest[0].Text) {
		date, err = date.WithTime(rest[0].Text)
		if err != nil {
			return nil, err
		}
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return nil, fmt.Errorf("expected keyword after date")
	}

	return parseDated(date, rest, block)
}

func parseUndated(tokens []scan.Token, block []scan.Line) (ast.Directive, error) {
	if len(block) > 0 {
		return nil, fmt.Errorf("unexpected indented block")
	}
	switch tokens[0].Text {
	case "option":
		if len(tokens) != 3 || tokens[1].Kind != scan.String || tokens[2].Kind != scan.String {
			return nil, fmt.Errorf(`expected option "key" "value"`)
		}
		return &ast.Option{Key: tokens[1].Text, Value: tokens[2].Text}, nil
	case "include":
		if len(tokens) != 2 || tokens[1].Kind != scan.String {
			return nil, fmt.Errorf(`expected include "path"`)
		}
		return &ast.Include{File: tokens[1].Text}, nil
	case "plugin":
		if len(tokens) < 2 || tokens[1].Kind != scan.String {
			return nil, fmt.Errorf(`expected plugin "module"`)
		}
		plugin := &ast.Plugin{Module: tokens[1].Text}
		for _, t := range tokens[2:] {
			plugin.Values = append(plugin.Values, t.Text)
		}
		return plugin, nil
	default:
		return nil, fmt.Errorf("unknown directive %q", tokens[0].Text)
	}
}

func parseDated(date *ast.Date, tokens []scan.Token, block []scan.Line) (ast.Directive, error) {
	keyword := ""
	if tokens[0].Kind == scan.Word {
		keyword = tokens[0].Text
	}

	var directive ast.Directive
	var err error

	switch keyword {
	case "open":
		directive, err = parseOpen(date, tokens[1:])
	case "close":
		directive, err = parseClose(date, tokens[1:])
	case "commodity":
		directive, err = parseCommodity(date, tokens[1:])
	case "balance":
		directive, err = parseBalance(date, tokens[1:])
	case "note":
		directive, err = parseNote(date, tokens[1:])
	case "document":
		directive, err = parseDocument(date, tokens[1:])
	case "price":
		directive, err = parsePrice(date, tokens[1:])
	case "event":
		directive, err = parseEvent(date, tokens[1:])
	case "custom":
		directive, err = parseCustom(date, tokens[1:])
	case "budget":
		directive, err = parseBudget(date, tokens[1:])
	case "budget-add":
		directive, err = parseBudgetAdd(date, tokens[1:])
	case "budget-transfer":
		directive, err = parseBudgetTransfer(date, tokens[1:])
	case "budget-close":
		directive, err = parseBudgetClose(date, tokens[1:])
	default:
		return parseTransaction(date, tokens, block)
	}
	if err != nil {
		return nil, err
	}

	meta, err := parseMetaBlock(block)
	if err != nil {
		return nil, err
	}
	if withMeta, ok := directive.(ast.WithMeta); ok {
		applyMeta(withMeta, meta)
	}
	return upgradeTime(directive), nil
}

func applyMeta(directive ast.WithMeta, meta *ast.Meta) {
	for _, entry := range meta.Flatten() {
		directive.GetMeta().Add(entry.Key, entry.Value)
	}
}

// upgradeTime promotes a day-precision directive date using a "time" meta
// entry, consuming the entry.
func upgradeTime(directive ast.Directive) ast.Directive {
	withMeta, ok := directive.(ast.WithMeta)
	if !ok {
		return directive
	}
	value, ok := withMeta.GetMeta().GetOne("time")
	if !ok {
		return directive
	}
	date := directive.GetDate()
	if date == nil || date.Precision() != ast.PrecisionDay {
		return directive
	}
	upgraded, err := date.WithTime(value)
	if err != nil {
		return directive
	}
	withMeta.GetMeta().Remove("time")
	setDate(directive, upgraded)
	return directive
}

func setDate(directive ast.Directive, date *ast.Date) {
	switch d := directive.(type) {
	case *ast.Open:
		d.Date = date
	case *ast.Close:
		d.Date = date
	case *ast.Commodity:
		d.Date = date
	case *ast.Transaction:
		d.Date = date
	case *ast.BalanceCheck:
		d.Date = date
	case *ast.BalancePad:
		d.Date = date
	case *ast.Note:
		d.Date = date
	case *ast.Document:
		d.Date = date
	case *ast.Price:
		d.Date = date
	case *ast.Event:
		d.Date = date
	case *ast.Custom:
		d.Date = date
	case *ast.Budget:
		d.Date = date
	case *ast.BudgetAdd:
		d.Date = date
	case *ast.BudgetTransfer:
		d.Date = date
	case *ast.BudgetClose:
		d.Date = date
	}
}

func parseAccountToken(tokens []scan.Token, what string) (ast.Account, []scan.Token, error) {
	if len(tokens) == 0 || tokens[0].Kind != scan.Word {
		return ast.Account{}, nil, fmt.Errorf("expected %s account", what)
	}
	account, err := ast.ParseAccount(tokens[0].Text)
	if err != nil {
		return ast.Account{}, nil, err
	}
	return account, tokens[1:], nil
}

func parseAmountTokens(tokens []scan.Token) (ast.Amount, []scan.Token, error) {
	if len(tokens) < 2 || tokens[0].Kind != scan.Word || tokens[1].Kind != scan.Word || !scan.IsNumeric(tokens[0].Text) {
		return ast.Amount{}, nil, fmt.Errorf("expected amount NUMBER COMMODITY")
	}
	number, err := decimal.NewFromString(strings.ReplaceAll(tokens[0].Text, ",", ""))
	if err != nil {
		return ast.Amount{}, nil, fmt.Errorf("invalid number %q", tokens[0].Text)
	}
	return ast.NewAmount(number, tokens[1].Text), tokens[2:], nil
}

func parseOpen(date *ast.Date, tokens []scan.Token) (ast.Directive, error) {
	account, rest, err := parseAccountToken(tokens, "open")
	if err != nil {
		return nil, err
	}
	open := &ast.Open{Date: date, Account: account}
	for _, t := range rest {
		if t.Kind != scan.Word {
			return nil, fmt.Errorf("unexpected token in open directive")
		}
		for _, commodity := range strings.Split(t.Text, ",") {
			if commodity != "" {
				open.Commodities = append(open.Commodities, commodity)
			}
		}
	}
	return open, nil
}

func parseClose(date *ast.Date, tokens []scan.Token) (ast.Directive, error) {
	account, rest, err := parseAccountToken(tokens, "close")
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("unexpected tokens after close account")
	}
	return &ast.Close{Date: date, Account: account}, nil
}

func parseCommodity(date *ast.Date, tokens []scan.Token) (ast.Directive, error) {
	if len(tokens) != 1 || tokens[0].Kind != scan.Word {
		return nil, fmt.Errorf("expected commodity CURRENCY")
	}
	return &ast.Commodity{Date: date, Currency: tokens[0].Text}, nil
}

func parseBalance(date *ast.Date, tokens []scan.Token) (ast.Directive, error) {
	account, rest, err := parseAccountToken(tokens, "balance")
	if err != nil {
		return nil, err
	}
	amount, rest, err := parseAmountTokens(rest)
	if err != nil {
		return nil, err
	}
	if len(rest) == 0 {
		return &ast.BalanceCheck{Date: date, Account: account, Amount: amount}, nil
	}
	if len(rest) == 3 && rest[0].Text == "with" && rest[1].Text == "pad" {
		pad, _, err := parseAccountToken(rest[2:], "pad")
		if err != nil {
			return nil, err
		}
		return &ast.BalancePad{Date: date, Account: account, Pad: pad, Amount: amount}, nil
	}
	return nil, fmt.Errorf("expected end of balance directive or `with pad ACCOUNT`")
}

func parseNote(date *ast.Date, tokens []scan.Token) (ast.Directive, error) {
	account, rest, err := parseAccountToken(tokens, "note")
	if err != nil {
		return nil, err
	}
	if len(rest) != 1 || rest[0].Kind != scan.String {
		return nil, fmt.Errorf(`expected note ACCOUNT "comment"`)
	}
	return &ast.Note{Date: date, Account: account, Comment: rest[0].Text}, nil
}

func parseDocument(date *ast.Date, tokens []scan.Token) (ast.Directive, error) {
	account, rest, err := parseAccountToken(tokens, "document")
	if err != nil {
		return nil, err
	}
	if len(rest) != 1 || rest[0].Kind != scan.String {
		return nil, fmt.Errorf(`expected document ACCOUNT "path"`)
	}
	return &ast.Document{Date: date, Account: account, Filename: rest[0].Text}, nil
}

func parsePrice(date *ast.Date, tokens []scan.Token) (ast.Directive, error) {
	if len(tokens) < 1 || tokens[0].Kind != scan.Word {
		return nil, fmt.Errorf("expected price CURRENCY AMOUNT")
	}
	amount, rest, err := parseAmountTokens(tokens[1:])
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("unexpected tokens after price amount")
	}
	return &ast.Price{Date: date, Currency: tokens[0].Text, Amount: amount}, nil
}

func parseEvent(date *ast.Date, tokens []scan.Token) (ast.Directive, error) {
	if len(tokens) != 2 || tokens[0].Kind != scan.String || tokens[1].Kind != scan.String {
		return nil, fmt.Errorf(`expected event "key" "value"`)
	}
	return &ast.Event{Date: date, Key: tokens[0].Text, Value: tokens[1].Text}, nil
}

func parseCustom(date *ast.Date, tokens []scan.Token) (ast.Directive, error) {
	if len(tokens) < 1 || tokens[0].Kind != scan.String {
		return nil, fmt.Errorf(`expected custom "type" VALUE...`)
	}
	custom := &ast.Custom{Date: date, Type: tokens[0].Text}
	for _, t := range tokens[1:] {
		custom.Values = append(custom.Values, ast.CustomValue{Value: t.Text, Quoted: t.Kind == scan.String})
	}
	return custom, nil
}

func parseBudget(date *ast.Date, tokens []scan.Token) (ast.Directive, error) {
	if len(tokens) != 2 || tokens[0].Kind != scan.Word || tokens[1].Kind != scan.Word {
		return nil, fmt.Errorf("expected budget NAME COMMODITY")
	}
	return &ast.Budget{Date: date, Name: tokens[0].Text, Commodity: tokens[1].Text}, nil
}

func parseBudgetAdd(date *ast.Date, tokens []scan.Token) (ast.Directive, error) {
	if len(tokens) < 1 || tokens[0].Kind != scan.Word {
		return nil, fmt.Errorf("expected budget-add NAME AMOUNT")
	}
	amount, rest, err := parseAmountTokens(tokens[1:])
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("unexpected tokens after budget-add amount")
	}
	return &ast.BudgetAdd{Date: date, Name: tokens[0].Text, Amount: amount}, nil
}

func parseBudgetTransfer(date *ast.Date, tokens []scan.Token) (ast.Directive, error) {
	if len(tokens) < 2 || tokens[0].Kind != scan.Word || tokens[1].Kind != scan.Word {
		return nil, fmt.Errorf("expected budget-transfer FROM TO AMOUNT")
	}
	amount, rest, err := parseAmountTokens(tokens[2:])
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("unexpected tokens after budget-transfer amount")
	}
	return &ast.BudgetTransfer{Date: date, From: tokens[0].Text, To: tokens[1].Text, Amount: amount}, nil
}

func parseBudgetClose(date *ast.Date, tokens []scan.Token) (ast.Directive, error) {
	if len(tokens) != 1 || tokens[0].Kind != scan.Word {
		return nil, fmt.Errorf("expected budget-close NAME")
	}
	return &ast.BudgetClose{Date: date, Name: tokens[0].Text}, nil
}

func parseTransaction(date *ast.Date, tokens []scan.Token, block []scan.Line) (ast.Directive, error) {
	txn := &ast.Transaction{Date: date}

	rest := tokens
	if len(rest) > 0 && rest[0].Kind == scan.Word {
		switch rest[0].Text {
		case "*":
			txn.Flag = ast.FlagOkay
			rest = rest[1:]
		case "!":
			txn.Flag = ast.FlagWarning
			rest = rest[1:]
		case "txn":
			txn.Flag = ast.FlagOkay
			rest = rest[1:]
		default:
			return nil, fmt.Errorf("unknown directive %q", rest[0].Text)
		}
	}

	var strs []string
	for len(rest) > 0 && rest[0].Kind == scan.String {
		strs = append(strs, rest[0].Text)
		rest = rest[1:]
	}
	switch len(strs) {
	case 0:
	case 1:
		txn.Narration = strs[0]
	case 2:
		txn.Payee = strs[0]
		txn.Narration = strs[1]
	default:
		return nil, fmt.Errorf("too many strings in transaction header")
	}

	for _, t := range rest {
		switch t.Kind {
		case scan.Tag:
			txn.Tags = append(txn.Tags, t.Text)
		case scan.Link:
			txn.Links = append(txn.Links, t.Text)
		default:
			return nil, fmt.Errorf("unexpected token in transaction header")
		}
	}

	var lastPosting *ast.Posting
	for _, line := range block {
		lineTokens, err := scan.Tokenize(line.Text)
		if err != nil {
			return nil, err
		}
		if len(lineTokens) == 0 {
			continue
		}
		if lineTokens[0].Kind == scan.Word && scan.IsMetaKey(lineTokens[0].Text) {
			key, value, err := parseMetaTokens(lineTokens)
			if err != nil {
				return nil, err
			}
			if lastPosting != nil {
				lastPosting.GetMeta().Add(key, value)
			} else {
				txn.GetMeta().Add(key, value)
			}
			continue
		}
		posting, err := parsePosting(lineTokens)
		if err != nil {
			return nil, err
		}
		txn.Postings = append(txn.Postings, posting)
		lastPosting = posting
	}

	return upgradeTime(txn), nil
}

func parsePosting(tokens []scan.Token) (*ast.Posting, error) {
	posting := &ast.Posting{}
	rest := tokens

	if len(rest) > 0 && rest[0].Kind == scan.Word && (rest[0].Text == "*" || rest[0].Text == "!") {
		posting.Flag = ast.Flag(rest[0].Text)
		rest = rest[1:]
	}

	account, rest, err := parseAccountToken(rest, "posting")
	if err != nil {
		return nil, err
	}
	posting.Account = account

	if len(rest) > 0 && rest[0].Kind == scan.Word && (rest[0].Text == "*" || rest[0].Text == "!") {
		posting.Flag = ast.Flag(rest[0].Text)
		rest = rest[1:]
	}

	if len(rest) >= 2 && rest[0].Kind == scan.Word && scan.IsNumeric(rest[0].Text) {
		amount, remaining, err := parseAmountTokens(rest)
		if err != nil {
			return nil, err
		}
		posting.Units = &amount
		rest = remaining
	}

	if len(rest) > 0 && rest[0].Kind == scan.Group {
		if err := parseCostGroup(posting, rest[0].Text); err != nil {
			return nil, err
		}
		rest = rest[1:]
	}

	if len(rest) > 0 && (rest[0].Kind == scan.At || rest[0].Kind == scan.AtAt) {
		total := rest[0].Kind == scan.AtAt
		amount, remaining, err := parseAmountTokens(rest[1:])
		if err != nil {
			return nil, err
		}
		posting.Price = &ast.PostingPrice{Amount: amount, Total: total}
		rest = remaining
	}

	if len(rest) != 0 {
		return nil, fmt.Errorf("unexpected tokens at end of posting")
	}
	return posting, nil
}

// parseCostGroup parses the inside of a {cost[, date]} group.
func parseCostGroup(posting *ast.Posting, group string) error {
	parts := strings.Split(group, ",")
	costTokens, err := scan.Tokenize(strings.TrimSpace(parts[0]))
	if err != nil {
		return err
	}
	amount, rest, err := parseAmountTokens(costTokens)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("unexpected tokens in cost group")
	}
	posting.Cost = &amount

	if len(parts) > 1 {
		date, err := ast.ParseDate(strings.TrimSpace(parts[1]))
		if err != nil {
			return err
		}
		posting.CostDate = date
	}
	if len(parts) > 2 {
		return fmt.Errorf("too many elements in cost group")
	}
	return nil
}

func parseMetaBlock(block []scan.Line) (*ast.Meta, error) {
	meta := ast.NewMeta()
	for _, line := range block {
		tokens, err := scan.Tokenize(line.Text)
		if err != nil {
			return nil, err
		}
		if len(tokens) == 0 {
			continue
		}
		if tokens[0].Kind != scan.Word || !scan.IsMetaKey(tokens[0].Text) {
			return nil, fmt.Errorf("expected metadata line, got %q", strings.TrimSpace(line.Text))
		}
		key, value, err := parseMetaTokens(tokens)
		if err != nil {
			return nil, err
		}
		meta.Add(key, value)
	}
	return meta, nil
}

func parseMetaTokens(tokens []scan.Token) (string, string, error) {
	key := strings.TrimSuffix(tokens[0].Text, ":")
	values := tokens[1:]
	if len(values) == 0 {
		return key, "", nil
	}
	if len(values) == 1 && values[0].Kind == scan.String {
		return key, values[0].Text, nil
	}
	var parts []string
	for _, v := range values {
		if v.Kind != scan.Word {
			return "", "", fmt.Errorf("unexpected token in metadata value")
		}
		parts = append(parts, v.Text)
	}
	return key, strings.Join(parts, " "), nil
}

