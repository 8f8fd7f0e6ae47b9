package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Defaults applied to optional fields left blank.
const (
	DefaultClassification = "GERAL"
	DefaultFunction       = "SINALIZAÇÃO"
	DefaultColor          = "VERDE"
	DefaultShape          = "RETANGULAR"
	DefaultSize           = "PADRÃO"
	DefaultExtras         = "NENHUM"

	DefaultEntry    = 0
	DefaultExit     = 0
	DefaultMinStock = 5
	DefaultMaxStock = 100
)

// Item is one signage stock record.
type Item struct {
	ID             string    `json:"id" yaml:"id"`
	Code           string    `json:"code" yaml:"code"`
	Description    string    `json:"description" yaml:"description"`
	Classification string    `json:"classification" yaml:"classification"`
	Function       string    `json:"function" yaml:"function"`
	Color          string    `json:"color" yaml:"color"`
	Shape          string    `json:"shape" yaml:"shape"`
	Size           string    `json:"size" yaml:"size"`
	Extras         string    `json:"extras" yaml:"extras"`
	Entry          int       `json:"entry" yaml:"entry"`
	Exit           int       `json:"exit" yaml:"exit"`
	MinStock       int       `json:"min_stock" yaml:"min_stock"`
	MaxStock       int       `json:"max_stock" yaml:"max_stock"`
	Observations   string    `json:"observations" yaml:"observations"`
	CreatedBy      string    `json:"created_by" yaml:"created_by"`
	UpdatedBy      string    `json:"updated_by" yaml:"updated_by"`
	UpdatedAt      time.Time `json:"updated_at" yaml:"updated_at"`
}

// Balance is entry minus exit. It is not clamped and may be negative.
func Balance(entry, exit int) int {
	return entry - exit
}

// CriticalAlert reports whether the balance has reached the minimum stock.
func CriticalAlert(entry, exit, minStock int) bool {
	return Balance(entry, exit) <= minStock
}

// Balance returns the current stock level of the item.
func (i Item) Balance() int {
	return Balance(i.Entry, i.Exit)
}

// CriticalAlert reports whether the item needs restocking.
func (i Item) CriticalAlert() bool {
	return CriticalAlert(i.Entry, i.Exit, i.MinStock)
}

// MarshalJSON adds the derived balance and critical_alert fields.
func (i Item) MarshalJSON() ([]byte, error) {
	type plain Item
	return json.Marshal(struct {
		plain
		Balance       int  `json:"balance"`
		CriticalAlert bool `json:"critical_alert"`
	}{plain(i), i.Balance(), i.CriticalAlert()})
}

// NumericField is a form value that should hold an integer. It accepts JSON
// numbers, strings and null.
type NumericField string

// UnmarshalJSON implements json.Unmarshaler.
func (n *NumericField) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = NumericField(s)
		return nil
	}
	*n = NumericField(data)
	return nil
}

// Int parses the field, returning def when it is blank or not an integer.
func (n NumericField) Int(def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(string(n)))
	if err != nil {
		return def
	}
	return v
}

// Num formats v as a NumericField.
func Num(v int) NumericField {
	return NumericField(strconv.Itoa(v))
}

// ItemInput is the set of caller-supplied fields for adding or editing an item.
type ItemInput struct {
	Code           string       `json:"code" validate:"notblank,max=32"`
	Description    string       `json:"description" validate:"notblank,max=200"`
	Classification string       `json:"classification"`
	Function       string       `json:"function"`
	Color          string       `json:"color"`
	Shape          string       `json:"shape"`
	Size           string       `json:"size"`
	Extras         string       `json:"extras"`
	Entry          NumericField `json:"entry"`
	Exit           NumericField `json:"exit"`
	MinStock       NumericField `json:"min_stock"`
	MaxStock       NumericField `json:"max_stock"`
	Observations   string       `json:"observations"`
}

// Fill overwrites every caller-editable field of it with the normalized
// input. ID and audit fields are left untouched.
func (in ItemInput) Fill(it *Item) {
	upper := cases.Upper(language.BrazilianPortuguese)

	it.Code = upper.String(strings.TrimSpace(in.Code))
	it.Description = upper.String(strings.TrimSpace(in.Description))
	it.Classification = orDefault(in.Classification, DefaultClassification)
	it.Function = orDefault(in.Function, DefaultFunction)
	it.Color = orDefault(in.Color, DefaultColor)
	it.Shape = orDefault(in.Shape, DefaultShape)
	it.Size = orDefault(in.Size, DefaultSize)
	it.Extras = orDefault(in.Extras, DefaultExtras)
	it.Entry = in.Entry.Int(DefaultEntry)
	it.Exit = in.Exit.Int(DefaultExit)
	it.MinStock = in.MinStock.Int(DefaultMinStock)
	it.MaxStock = in.MaxStock.Int(DefaultMaxStock)
	it.Observations = in.Observations
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
