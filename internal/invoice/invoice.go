// Package invoice renders the customer bill printed or shared after a sale.
package invoice

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/Dan9191/field-ledger/internal/ledger"
)

const footer = "*System generated - No signature required*"

const style = `body { font-family: Helvetica, Arial, sans-serif; padding: 20px; }
.header { text-align: center; margin-bottom: 20px; }
.header h1 { margin: 0; font-size: 24px; font-weight: bold; }
.header p { margin: 5px 0; font-size: 14px; }
.divider { border-bottom: 1px dashed #000; margin: 10px 0; }
.section { margin-bottom: 15px; }
.row { display: flex; justify-content: space-between; margin-bottom: 5px; font-size: 14px; }
.bold { font-weight: bold; }
.total { font-size: 16px; }
.footer { text-align: center; margin-top: 30px; font-size: 12px; font-style: italic; }`

// Business is the seller shown in the invoice header
type Business struct {
	Name    string
	Address string
}

// Party is a person named on the invoice
type Party struct {
	Name    string
	Mobile  string
	Address string
}

// Invoice is a finished sale. Bill carries the same figures that were posted.
type Invoice struct {
	Number   string
	IssuedAt time.Time
	Business Business
	Driver   Party
	Customer Party
	Bill     ledger.Reconciliation
}

// New builds an invoice numbered after its issue time
func New(b Business, driver, customer Party, bill ledger.Reconciliation, at time.Time) *Invoice {
	if driver.Name == "" {
		driver.Name = "Driver"
	}
	if driver.Mobile == "" {
		driver.Mobile = "N/A"
	}
	if customer.Name == "" {
		customer.Name = "Unknown"
	}
	if customer.Mobile == "" {
		customer.Mobile = "N/A"
	}
	return &Invoice{
		Number:   fmt.Sprintf("INV-%d", at.UnixMilli()),
		IssuedAt: at,
		Business: b,
		Driver:   driver,
		Customer: customer,
		Bill:     bill,
	}
}

type row struct {
	label string
	value string
}

type section struct {
	title string
	rows  []row
	bold  map[string]bool
}

func rupees(v float64) string {
	return "₹ " + ledger.FormatAmount(v)
}

func plain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (inv *Invoice) sections() []section {
	b := inv.Bill
	return []section{
		{rows: []row{
			{"Invoice No:", inv.Number},
			{"Date:", inv.IssuedAt.Format("02/01/2006")},
			{"Time:", inv.IssuedAt.Format("03:04:05 PM")},
		}, bold: map[string]bool{"Invoice No:": true}},
		{title: "DRIVER:", rows: []row{
			{"Name:", inv.Driver.Name},
			{"Mobile:", inv.Driver.Mobile},
		}},
		{title: "CUSTOMER:", rows: []row{
			{"Name:", inv.Customer.Name},
			{"Mobile:", inv.Customer.Mobile},
			{"Address:", inv.Customer.Address},
		}},
		{title: "BILL DETAILS:", rows: []row{
			{"Previous Due:", rupees(b.PreviousBalance)},
			{"Total Weight:", plain(b.Weight) + " KG"},
			{"Rate per KG:", "₹ " + plain(b.Rate)},
			{"Total Amount:", rupees(b.BillTotal)},
		}, bold: map[string]bool{"Total Amount:": true}},
		{title: "PAYMENT:", rows: []row{
			{"Cash:", rupees(b.Cash)},
			{"UPI:", rupees(b.UPI)},
		}},
	}
}

func (inv *Invoice) heading() string {
	name := inv.Business.Name
	if name == "" {
		name = "INVOICE"
	}
	return "*** " + strings.ToUpper(name) + " ***"
}

// Document builds the invoice as an XHTML tree
func (inv *Invoice) Document() *etree.Document {
	doc := etree.NewDocument()
	html := doc.CreateElement("html")
	html.CreateAttr("xmlns", "http://www.w3.org/1999/xhtml")

	head := html.CreateElement("head")
	head.CreateElement("meta").CreateAttr("charset", "utf-8")
	head.CreateElement("title").SetText(inv.Number)
	head.CreateElement("style").SetText(style)

	body := html.CreateElement("body")
	header := div(body, "header")
	header.CreateElement("h1").SetText(inv.heading())
	header.CreateElement("p").SetText("Customer Billing Invoice")
	if inv.Business.Address != "" {
		header.CreateElement("p").SetText(inv.Business.Address)
	}
	div(body, "divider")

	for _, s := range inv.sections() {
		sec := div(body, "section")
		if s.title != "" {
			title := sec.CreateElement("p")
			title.CreateAttr("class", "bold")
			title.SetText(s.title)
		}
		for _, r := range s.rows {
			addRow(sec, r, s.bold[r.label])
		}
		div(body, "divider")
	}

	total := div(body, "section")
	addRow(total, row{"NEW CREDIT BALANCE:", rupees(inv.Bill.NewBalance)}, true).CreateAttr("class", "row total")
	div(body, "divider")

	div(body, "footer").SetText(footer)
	return doc
}

func div(parent *etree.Element, class string) *etree.Element {
	el := parent.CreateElement("div")
	el.CreateAttr("class", class)
	return el
}

func addRow(parent *etree.Element, r row, bold bool) *etree.Element {
	el := div(parent, "row")
	label := el.CreateElement("span")
	label.SetText(r.label)
	value := el.CreateElement("span")
	value.SetText(r.value)
	if bold {
		label.CreateAttr("class", "bold")
		value.CreateAttr("class", "bold")
	}
	return el
}

// HTML renders the invoice for printing or PDF conversion
func (inv *Invoice) HTML() (string, error) {
	doc := inv.Document()
	// empty divs must not self-close when read as HTML
	doc.WriteSettings.CanonicalEndTags = true
	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("failed to render invoice: %w", err)
	}
	return "<!DOCTYPE html>\n" + out, nil
}

// Text renders the invoice as a plain receipt
func (inv *Invoice) Text() string {
	var sb strings.Builder
	sb.WriteString(inv.heading() + "\n")
	sb.WriteString("Customer Billing Invoice\n")
	if inv.Business.Address != "" {
		sb.WriteString(inv.Business.Address + "\n")
	}
	rule := strings.Repeat("-", 36) + "\n"
	sb.WriteString(rule)
	for _, s := range inv.sections() {
		if s.title != "" {
			sb.WriteString(s.title + "\n")
		}
		for _, r := range s.rows {
			fmt.Fprintf(&sb, "%-16s %s\n", r.label, r.value)
		}
		sb.WriteString(rule)
	}
	fmt.Fprintf(&sb, "%-20s %s\n", "NEW CREDIT BALANCE:", rupees(inv.Bill.NewBalance))
	sb.WriteString(rule)
	sb.WriteString(footer + "\n")
	return sb.String()
}
