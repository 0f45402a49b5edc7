package notification

import (
	"fmt"
	"strings"

	"order-notifier/internal/domain/order"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Channel describes how the device should present a notification.
type Channel struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	Importance       string  `json:"importance"`
	VibrationPattern []int64 `json:"vibration_pattern"`
	AutoCancel       bool    `json:"auto_cancel"`
	NotificationID   int     `json:"notification_id"`
}

// NewOrdersChannel is the single high priority channel used for new order alerts.
var NewOrdersChannel = Channel{
	ID:               "new_orders_channel",
	Name:             "New orders",
	Description:      "Alerts when new orders are available",
	Importance:       "high",
	VibrationPattern: []int64{0, 500, 200, 500},
	AutoCancel:       true,
	NotificationID:   1001,
}

// Notification is a message ready to be delivered to a driver.
type Notification struct {
	DriverID string
	OrderID  string
	Title    string
	Body     string
	Channel  Channel
}

// message keys; English text doubles as the key.
const (
	msgTitle       = "📦 New order available - %s"
	msgNegotiate   = "price to negotiate"
	msgClient      = "Client"
	msgLocal       = "Pickup"
	msgNoAddress   = "No address"
	defaultLang    = "en"
	defaultCurrISO = "USD"
)

// Formatter renders order summaries into localized notifications.
type Formatter struct {
	tag  language.Tag
	unit currency.Unit
	cat  catalog.Catalog
}

// NewFormatter builds a Formatter for a BCP 47 language and an ISO 4217 currency code.
// Blank values fall back to English and USD.
func NewFormatter(lang, iso string) (*Formatter, error) {
	if strings.TrimSpace(lang) == "" {
		lang = defaultLang
	}
	if strings.TrimSpace(iso) == "" {
		iso = defaultCurrISO
	}

	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return nil, fmt.Errorf("parse language %q: %w", lang, err)
	}
	unit, err := currency.ParseISO(strings.TrimSpace(iso))
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", iso, err)
	}

	cat, err := newCatalog()
	if err != nil {
		return nil, err
	}

	return &Formatter{tag: tag, unit: unit, cat: cat}, nil
}

func newCatalog() (catalog.Catalog, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	entries := []struct {
		tag      language.Tag
		key, msg string
	}{
		{language.English, msgTitle, msgTitle},
		{language.English, msgNegotiate, msgNegotiate},
		{language.English, msgClient, msgClient},
		{language.English, msgLocal, msgLocal},
		{language.English, msgNoAddress, msgNoAddress},
		{language.Spanish, msgTitle, "📦 Nuevo pedido disponible - %s"},
		{language.Spanish, msgNegotiate, "Precio a acordar"},
		{language.Spanish, msgClient, "Cliente"},
		{language.Spanish, msgLocal, "Local"},
		{language.Spanish, msgNoAddress, "Sin dirección"},
	}
	for _, e := range entries {
		if err := b.SetString(e.tag, e.key, e.msg); err != nil {
			return nil, fmt.Errorf("catalog %s %q: %w", e.tag, e.key, err)
		}
	}
	return b, nil
}

// Price renders the suggested price, or the negotiate text for non-positive prices.
func (f *Formatter) Price(amount float64) string {
	p := message.NewPrinter(f.tag, message.Catalog(f.cat))
	if amount <= 0 {
		return p.Sprintf(msgNegotiate)
	}
	return p.Sprint(currency.Symbol(f.unit.Amount(amount)))
}

// NewOrder builds the notification announcing o to driverID.
func (f *Formatter) NewOrder(driverID string, o order.Summary) Notification {
	p := message.NewPrinter(f.tag, message.Catalog(f.cat))

	client := strings.TrimSpace(o.ClientName)
	if client == "" {
		client = p.Sprintf(msgClient)
	}
	local := strings.TrimSpace(o.LocalName)
	if local == "" {
		local = p.Sprintf(msgLocal)
	}
	address := strings.TrimSpace(o.DeliveryAddress)
	if address == "" {
		address = p.Sprintf(msgNoAddress)
	}

	price := p.Sprintf(msgNegotiate)
	if o.HasPrice() {
		price = f.Price(o.SuggestedPrice)
	}

	return Notification{
		DriverID: driverID,
		OrderID:  o.ID,
		Title:    p.Sprintf(msgTitle, o.DisplayID()),
		Body:     local + " → " + client + "\n" + address + "\n" + price,
		Channel:  NewOrdersChannel,
	}
}
