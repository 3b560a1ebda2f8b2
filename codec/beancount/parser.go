// Package beancount implements the Beancount-compatible dialect codec.
//
// On top of the primary dialect's structure it supports arithmetic
// expressions in amounts, the pushtag/poptag ambient tag stack, separate
// pad and balance directives (coalesced into the canonical BalancePad and
// BalanceCheck forms), and custom "budget" rows that map onto the budget
// directives.
package beancount

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/codec"
	"github.com/robinvdvleuten/zhang/codec/internal/scan"
)

func init() {
	codec.Register(func() codec.DataType { return &DataType{} }, "bc", "bean", "beancount")
}

// DataType is the Beancount dialect codec.
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

// padDirective is the stateful pad form before coalescing.
type padDirective struct {
	date    *ast.Date
	account ast.Account
	pad     ast.Account
}

// Transform parses the dialect, applies the ambient tag stack and coalesces
// pad/balance pairs into the canonical directives.
//
// The coalescing rule follows source order: a pad(date, acc, padAcc) seen
// before a balance(date' >= date, acc, amt) for the same account makes that
// balance emit as BalancePad; otherwise the balance emits as BalanceCheck.
// A pad alone emits nothing.
func (d *DataType) Transform(content []byte, source string) ([]ast.Spanned, error) {
	lines := scan.SplitLines(content)
	var directives []ast.Spanned

	// Ambient tag stack maintained by pushtag/poptag.
	var tagStack []string
	// Pads seen so far, per account, with the date they were declared on.
	pads := make(map[string][]padDirective)

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

		span := ast.SpanInfo{
			Start:    line.Start,
			End:      end,
			Content:  string(content[line.Start:end]),
			Filename: source,
		}

		tokens, err := scan.Tokenize(line.Text)
		if err != nil {
			return nil, &ParseError{Source: source, Line: line.Number, Msg: err.Error()}
		}
		if len(tokens) == 0 {
			continue
		}

		// Stateful directives that do not emit canonical forms directly.
		if tokens[0].Kind == scan.Word {
			switch tokens[0].Text {
			case "pushtag":
				tag, err := parseTagArg(tokens[1:])
				if err != nil {
					return nil, &ParseError{Source: source, Line: line.Number, Msg: err.Error()}
				}
				tagStack = append(tagStack, tag)
				continue
			case "poptag":
				tag, err := parseTagArg(tokens[1:])
				if err != nil {
					return nil, &ParseError{Source: source, Line: line.Number, Msg: err.Error()}
				}
				for k := len(tagStack) - 1; k >= 0; k-- {
					if tagStack[k] == tag {
						tagStack = append(tagStack[:k], tagStack[k+1:]...)
						break
					}
				}
				continue
			}
		}

		directive, pad, err := parseLine(tokens, block)
		if err != nil {
			return nil, &ParseError{Source: source, Line: line.Number, Msg: err.Error()}
		}

		if pad != nil {
			pads[pad.account.Name()] = append(pads[pad.account.Name()], *pad)
			continue
		}
		if directive == nil {
			continue
		}

		// Coalesce a balance against the latest pad declared at or before
		// its date.
		if check, ok := directive.(*ast.BalanceCheck); ok {
			if pad := latestPad(pads[check.Account.Name()], check.Date); pad != nil {
				balancePad := &ast.BalancePad{
					Date:    check.Date,
					Account: check.Account,
					Pad:     pad.pad,
					Amount:  check.Amount,
				}
				for _, entry := range check.GetMeta().Flatten() {
					balancePad.GetMeta().Add(entry.Key, entry.Value)
				}
				directive = balancePad
			}
		}

		if txn, ok := directive.(*ast.Transaction); ok && len(tagStack) > 0 {
			txn.Tags = append(txn.Tags, tagStack...)
		}

		directives = append(directives, ast.NewSpanned(directive, span))
	}

	return directives, nil
}

// latestPad returns the pad with the greatest date at or before the
// balance date.
func latestPad(pads []padDirective, date *ast.Date) *padDirective {
	var best *padDirective
	for i := range pads {
		pad := &pads[i]
		if date.Before(pad.date) {
			continue
		}
		if best == nil || best.date.Before(pad.date) {
			best = pad
		}
	}
	return best
}

func parseTagArg(tokens []scan.Token) (string, error) {
	if len(tokens) != 1 || tokens[0].Kind != scan.Tag {
		return "", fmt.Errorf("expected #tag")
	}
	return tokens[0].Text, nil
}

// parseLine parses one directive, returning either a canonical directive
// or a pending pad.
func parseLine(tokens []scan.Token, block []scan.Line) (ast.Directive, *padDirective, error) {
	if tokens[0].Kind == scan.Word && !dateRe.MatchString(tokens[0].Text) {
		directive, err := parseUndated(tokens)
		return directive, nil, err
	}

	date, err := ast.ParseDate(tokens[0].Text)
	if err != nil {
		return nil, nil, err
	}
	rest := tokens[1:]
	if len(rest) == 0 {
		return nil, nil, fmt.Errorf("expected keyword after date")
	}

	keyword := ""
	if rest[0].Kind == scan.Word {
		keyword = rest[0].Text
	}

	switch keyword {
	case "pad":
		account, next, err := parseAccountToken(rest[1:], "pad")
		if err != nil {
			return nil, nil, err
		}
		padAccount, next, err := parseAccountToken(next, "pad source")
		if err != nil {
			return nil, nil, err
		}
		if len(next) != 0 {
			return nil, nil, fmt.Errorf("unexpected tokens after pad accounts")
		}
		return nil, &padDirective{date: date, account: account, pad: padAccount}, nil

	case "balance":
		account, next, err := parseAccountToken(rest[1:], "balance")
		if err != nil {
			return nil, nil, err
		}
		amount, next, err := parseAmount(next)
		if err != nil {
			return nil, nil, err
		}
		if len(next) != 0 {
			return nil, nil, fmt.Errorf("unexpected tokens after balance amount")
		}
		check := &ast.BalanceCheck{Date: date, Account: account, Amount: amount}
		if err := attachMeta(check, block); err != nil {
			return nil, nil, err
		}
		return upgradeTime(check), nil, nil

	case "open":
		open := &ast.Open{Date: date}
		account, next, err := parseAccountToken(rest[1:], "open")
		if err != nil {
			return nil, nil, err
		}
		open.Account = account
		for _, t := range next {
			if t.Kind == scan.String {
				// Booking method strings are accepted and ignored.
				continue
			}
			if t.Kind != scan.Word {
				return nil, nil, fmt.Errorf("unexpected token in open directive")
			}
			for _, commodity := range strings.Split(t.Text, ",") {
				if commodity != "" {
					open.Commodities = append(open.Commodities, commodity)
				}
			}
		}
		if err := attachMeta(open, block); err != nil {
			return nil, nil, err
		}
		return upgradeTime(open), nil, nil

	case "close":
		account, next, err := parseAccountToken(rest[1:], "close")
		if err != nil {
			return nil, nil, err
		}
		if len(next) != 0 {
			return nil, nil, fmt.Errorf("unexpected tokens after close account")
		}
		directive := &ast.Close{Date: date, Account: account}
		if err := attachMeta(directive, block); err != nil {
			return nil, nil, err
		}
		return upgradeTime(directive), nil, nil

	case "commodity":
		if len(rest) != 2 || rest[1].Kind != scan.Word {
			return nil, nil, fmt.Errorf("expected commodity CURRENCY")
		}
		directive := &ast.Commodity{Date: date, Currency: rest[1].Text}
		if err := attachMeta(directive, block); err != nil {
			return nil, nil, err
		}
		return upgradeTime(directive), nil, nil

	case "note":
		account, next, err := parseAccountToken(rest[1:], "note")
		if err != nil {
			return nil, nil, err
		}
		if len(next) != 1 || next[0].Kind != scan.String {
			return nil, nil, fmt.Errorf(`expected note ACCOUNT "comment"`)
		}
		directive := &ast.Note{Date: date, Account: account, Comment: next[0].Text}
		if err := attachMeta(directive, block); err != nil {
			return nil, nil, err
		}
		return upgradeTime(directive), nil, nil

	case "document":
		account, next, err := parseAccountToken(rest[1:], "document")
		if err != nil {
			return nil, nil, err
		}
		if len(next) != 1 || next[0].Kind != scan.String {
			return nil, nil, fmt.Errorf(`expected document ACCOUNT "path"`)
		}
		directive := &ast.Document{Date: date, Account: account, Filename: next[0].Text}
		if err := attachMeta(directive, block); err != nil {
			return nil, nil, err
		}
		return upgradeTime(directive), nil, nil

	case "price":
		if len(rest) < 2 || rest[1].Kind != scan.Word {
			return nil, nil, fmt.Errorf("expected price CURRENCY AMOUNT")
		}
		amount, next, err := parseAmount(rest[2:])
		if err != nil {
			return nil, nil, err
		}
		if len(next) != 0 {
			return nil, nil, fmt.Errorf("unexpected tokens after price amount")
		}
		directive := &ast.Price{Date: date, Currency: rest[1].Text, Amount: amount}
		if err := attachMeta(directive, block); err != nil {
			return nil, nil, err
		}
		return upgradeTime(directive), nil, nil

	case "event":
		if len(rest) != 3 || rest[1].Kind != scan.String || rest[2].Kind != scan.String {
			return nil, nil, fmt.Errorf(`expected event "key" "value"`)
		}
		directive := &ast.Event{Date: date, Key: rest[1].Text, Value: rest[2].Text}
		if err := attachMeta(directive, block); err != nil {
			return nil, nil, err
		}
		return upgradeTime(directive), nil, nil

	case "custom":
		directive, err := parseCustom(date, rest[1:])
		if err != nil {
			return nil, nil, err
		}
		if err := attachMeta(directive, block); err != nil {
			return nil, nil, err
		}
		return upgradeTime(directive), nil, nil

	default:
		directive, err := parseTransaction(date, rest, block)
		return directive, nil, err
	}
}

func parseUndated(tokens []scan.Token) (ast.Directive, error) {
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

// parseCustom maps custom "budget" rows onto the budget directives and
// keeps other customs as-is.
func parseCustom(date *ast.Date, tokens []scan.Token) (ast.Directive, error) {
	if len(tokens) < 1 || tokens[0].Kind != scan.String {
		return nil, fmt.Errorf(`expected custom "type" VALUE...`)
	}
	typ := tokens[0].Text
	args := tokens[1:]

	switch typ {
	case "budget":
		if len(args) != 2 || args[0].Kind != scan.Word || args[1].Kind != scan.Word {
			return nil, fmt.Errorf(`expected custom "budget" NAME COMMODITY`)
		}
		return &ast.Budget{Date: date, Name: args[0].Text, Commodity: args[1].Text}, nil
	case "budget-add":
		if len(args) < 1 || args[0].Kind != scan.Word {
			return nil, fmt.Errorf(`expected custom "budget-add" NAME AMOUNT`)
		}
		amount, rest, err := parseAmount(args[1:])
		if err != nil || len(rest) != 0 {
			return nil, fmt.Errorf(`expected custom "budget-add" NAME AMOUNT`)
		}
		return &ast.BudgetAdd{Date: date, Name: args[0].Text, Amount: amount}, nil
	case "budget-transfer":
		if len(args) < 2 || args[0].Kind != scan.Word || args[1].Kind != scan.Word {
			return nil, fmt.Errorf(`expected custom "budget-transfer" FROM TO AMOUNT`)
		}
		amount, rest, err := parseAmount(args[2:])
		if err != nil || len(rest) != 0 {
			return nil, fmt.Errorf(`expected custom "budget-transfer" FROM TO AMOUNT`)
		}
		return &ast.BudgetTransfer{Date: date, From: args[0].Text, To: args[1].Text, Amount: amount}, nil
	case "budget-close":
		if len(args) != 1 || args[0].Kind != scan.Word {
			return nil, fmt.Errorf(`expected custom "budget-close" NAME`)
		}
		return &ast.BudgetClose{Date: date, Name: args[0].Text}, nil
	}

	custom := &ast.Custom{Date: date, Type: typ}
	for _, t := range args {
		custom.Values = append(custom.Values, ast.CustomValue{Value: t.Text, Quoted: t.Kind == scan.String})
	}
	return custom, nil
}

func parseTransaction(date *ast.Date, tokens []scan.Token, block []scan.Line) (ast.Directive, error) {
	txn := &ast.Transaction{Date: date}

	rest := tokens
	if len(rest) > 0 && rest[0].Kind == scan.Word {
		switch rest[0].Text {
		case "*", "txn":
			txn.Flag = ast.FlagOkay
			rest = rest[1:]
		case "!":
			txn.Flag = ast.FlagWarning
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

	if len(rest) > 0 && rest[0].Kind == scan.Word && isExpressionPart(rest[0].Text) {
		amount, remaining, err := parseAmount(rest)
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
		amount, remaining, err := parseAmount(rest[1:])
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

func parseCostGroup(posting *ast.Posting, group string) error {
	parts := strings.Split(group, ",")
	costTokens, err := scan.Tokenize(strings.TrimSpace(parts[0]))
	if err != nil {
		return err
	}
	amount, rest, err := parseAmount(costTokens)
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

// parseAmount consumes expression tokens followed by a commodity word and
// evaluates the expression.
func parseAmount(tokens []scan.Token) (ast.Amount, []scan.Token, error) {
	var parts []string
	i := 0
	for ; i < len(tokens); i++ {
		if tokens[i].Kind != scan.Word {
			break
		}
		if isCommodityWord(tokens[i].Text) && len(parts) > 0 {
			break
		}
		if !isExpressionPart(tokens[i].Text) {
			break
		}
		parts = append(parts, tokens[i].Text)
	}
	if len(parts) == 0 {
		return ast.Amount{}, nil, fmt.Errorf("expected amount expression")
	}
	if i >= len(tokens) || tokens[i].Kind != scan.Word || !isCommodityWord(tokens[i].Text) {
		return ast.Amount{}, nil, fmt.Errorf("expected commodity after amount expression")
	}

	number, err := evalExpression(strings.Join(parts, " "))
	if err != nil {
		return ast.Amount{}, nil, err
	}
	return ast.NewAmount(number, tokens[i].Text), tokens[i+1:], nil
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

func attachMeta(directive ast.Directive, block []scan.Line) error {
	withMeta, ok := directive.(ast.WithMeta)
	if !ok {
		if len(block) > 0 {
			return fmt.Errorf("unexpected indented block")
		}
		return nil
	}
	for _, line := range block {
		tokens, err := scan.Tokenize(line.Text)
		if err != nil {
			return err
		}
		if len(tokens) == 0 {
			continue
		}
		if tokens[0].Kind != scan.Word || !scan.IsMetaKey(tokens[0].Text) {
			return fmt.Errorf("expected metadata line, got %q", strings.TrimSpace(line.Text))
		}
		key, value, err := parseMetaTokens(tokens)
		if err != nil {
			return err
		}
		withMeta.GetMeta().Add(key, value)
	}
	return nil
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
