package crm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// Int64 accepts integers encoded either as JSON numbers or strings, which
// the CRM mixes freely.
type Int64 int64

// UnmarshalJSON implements json.Unmarshaler.
func (i *Int64) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*i = 0
		return nil
	}
	raw := string(bytes.Trim(data, `"`))
	if raw == "" {
		*i = 0
		return nil
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("crm: invalid integer %s", data)
	}
	*i = Int64(parsed)
	return nil
}

// ProductFields is the writable subset of a CRM product.
type ProductFields struct {
	Name        string
	Price       decimal.Decimal
	Currency    string
	Description string
	Sort        int
	Image       *Image
}

// Image is an attachment sent inline as base64.
type Image struct {
	FileName string
	Content  []byte
}

// Product is a catalogue row as returned by crm.product.list.
type Product struct {
	ID          Int64           `json:"ID"`
	Name        string          `json:"NAME"`
	Description string          `json:"DESCRIPTION"`
	Price       decimal.Decimal `json:"PRICE"`
	Currency    string          `json:"CURRENCY_ID"`
	Sort        Int64           `json:"SORT"`
}

// ListParams selects and orders a crm.product.list page.
type ListParams struct {
	Select []string
	Order  map[string]string
	Start  int
}

// ListPage is one page of products. Next is nil on the last page.
type ListPage struct {
	Items []Product
	Next  *int
	Total int
}

// FieldInfo describes one product field from crm.product.fields.
type FieldInfo struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	IsRequired bool   `json:"isRequired"`
	IsReadOnly bool   `json:"isReadOnly"`
}

type envelope struct {
	Result           json.RawMessage `json:"result"`
	Next             *int            `json:"next"`
	Total            int             `json:"total"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}
