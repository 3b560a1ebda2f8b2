package text

import (
	"fmt"
	"strings"

	"github.com/robinvdvleuten/zhang/ast"
	"github.com/robinvdvleuten/zhang/codec/internal/scan"
)

// Export renders a directive in the primary dialect, without a trailing
// newline. Datetimes are rendered inline after the date.
func (d *DataType) Export(directive ast.Directive) []byte {
	var sb strings.Builder
	exportDirective(&sb, directive)
	return []byte(sb.String())
}

func exportDirective(sb *strings.Builder, directive ast.Directive) {
	switch d := directive.(type) {
	case *ast.Option:
		fmt.Fprintf(sb, "option %s %s", scan.Quote(d.Key), scan.Quote(d.Value))
	case *ast.Include:
		fmt.Fprintf(sb, "include %s", scan.Quote(d.File))
	case *ast.Plugin:
		sb.WriteString("plugin " + scan.Quote(d.Module))
		for _, v := range d.Values {
			sb.WriteString(" " + scan.Quote(v))
		}
	case *ast.Comment:
		sb.WriteString(d.Content)
	case *ast.Open:
		fmt.Fprintf(sb, "%s open %s", d.Date, d.Account)
		if len(d.Commodities) > 0 {
			sb.WriteString(" " + strings.Join(d.Commodities, ", "))
		}
		exportMeta(sb, d.GetMeta(), "  ")
	case *ast.Close:
		fmt.Fprintf(sb, "%s close %s", d.Date, d.Account)
		exportMeta(sb, d.GetMeta(), "  ")
	case *ast.Commodity:
		fmt.Fprintf(sb, "%s commodity %s", d.Date, d.Currency)
		exportMeta(sb, d.GetMeta(), "  ")
	case *ast.BalanceCheck:
		fmt.Fprintf(sb, "%s balance %s %s", d.Date, d.Account, d.Amount)
		exportMeta(sb, d.GetMeta(), "  ")
	case *ast.BalancePad:
		fmt.Fprintf(sb, "%s balance %s %s with pad %s", d.Date, d.Account, d.Amount, d.Pad)
		exportMeta(sb, d.GetMeta(), "  ")
	case *ast.Note:
		fmt.Fprintf(sb, "%s note %s %s", d.Date, d.Account, scan.Quote(d.Comment))
		exportMeta(sb, d.GetMeta(), "  ")
	case *ast.Document:
		fmt.Fprintf(sb, "%s document %s %s", d.Date, d.Account, scan.Quote(d.Filename))
		exportMeta(sb, d.GetMeta(), "  ")
	case *ast.Price:
		fmt.Fprintf(sb, "%s price %s %s", d.Date, d.Currency, d.Amount)
		exportMeta(sb, d.GetMeta(), "  ")
	case *ast.Event:
		fmt.Fprintf(sb, "%s event %s %s", d.Date, scan.Quote(d.Key), scan.Quote(d.Value))
		exportMeta(sb, d.GetMeta(), "  ")
	case *ast.Custom:
		fmt.Fprintf(sb, "%s custom %s", d.Date, scan.Quote(d.Type))
		for _, v := range d.Values {
			if v.Quoted {
				sb.WriteString(" " + scan.Quote(v.Value))
			} else {
				sb.WriteString(" " + v.Value)
			}
		}
		exportMeta(sb, d.GetMeta(), "  ")
	case *ast.Budget:
		fmt.Fprintf(sb, "%s budget %s %s", d.Date, d.Name, d.Commodity)
		exportMeta(sb, d.GetMeta(), "  ")
	case *ast.BudgetAdd:
		fmt.Fprintf(sb, "%s budget-add %s %s", d.Date, d.Name, d.Amount)
		exportMeta(sb, d.GetMeta(), "  ")
	case *ast.BudgetTransfer:
		fmt.Fprintf(sb, "%s budget-transfer %s %s %s", d.Date, d.From, d.To, d.Amount)
		exportMeta(sb, d.GetMeta(), "  ")
	case *ast.BudgetClose:
		fmt.Fprintf(sb, "%s budget-close %s", d.Date, d.Name)
		exportMeta(sb, d.GetMeta(), "  ")
	case *ast.Transaction:
		exportTransaction(sb, d)
	}
}

func exportTransaction(sb *strings.Builder, txn *ast.Transaction) {
	fmt.Fprintf(sb, "%s %s", txn.Date, txn.GetFlag())
	if txn.Payee != "" {
		sb.WriteString(" " + scan.Quote(txn.Payee))
	}
	sb.WriteString(" " + scan.Quote(txn.Narration))
	for _, tag := range txn.Tags {
		sb.WriteString(" #" + tag)
	}
	for _, link := range txn.Links {
		sb.WriteString(" ^" + link)
	}
	exportMeta(sb, txn.GetMeta(), "  ")
	for _, posting := range txn.Postings {
		sb.WriteString("\n  ")
		if posting.Flag != "" {
			sb.WriteString(string(posting.Flag) + " ")
		}
		sb.WriteString(posting.Account.Name())
		if posting.Units != nil {
			sb.WriteString(" " + posting.Units.String())
		}
		if posting.Cost != nil {
			sb.WriteString(" {" + posting.Cost.String())
			if posting.CostDate != nil {
				sb.WriteString(", " + posting.CostDate.DateOnly())
			}
			sb.WriteString("}")
		}
		if posting.Price != nil {
			if posting.Price.Total {
				sb.WriteString(" @@ " + posting.Price.Amount.String())
			} else {
				sb.WriteString(" @ " + posting.Price.Amount.String())
			}
		}
		exportMeta(sb, posting.GetMeta(), "    ")
	}
}

func exportMeta(sb *strings.Builder, meta *ast.Meta, indent string) {
	for _, entry := range meta.Flatten() {
		fmt.Fprintf(sb, "\n%s%s: %s", indent, entry.Key, scan.Quote(entry.Value))
	}
}
