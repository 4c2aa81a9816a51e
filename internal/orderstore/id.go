package orderstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

var ErrInvalidID = errors.New("order id must be a json string or number")

// OrderID is an opaque order identifier as the marketplace sent it. Ids keep their json
// type, so the number 12 and the string "12" are different ids.
type OrderID struct {
	// compact json text of the id, empty for the zero value
	raw string
}

// ParseOrderID accepts the json encoding of a string or a number.
func ParseOrderID(raw []byte) (OrderID, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	err := dec.Decode(&value)
	if err != nil {
		return OrderID{}, errors.Join(ErrInvalidID, err)
	}
	if dec.More() {
		return OrderID{}, ErrInvalidID
	}

	switch v := value.(type) {
	case string:
		return StringID(v), nil
	case json.Number:
		return OrderID{raw: v.String()}, nil
	default:
		return OrderID{}, ErrInvalidID
	}
}

func StringID(id string) OrderID {
	encoded, _ := json.Marshal(id)
	return OrderID{raw: string(encoded)}
}

func IntID(id int64) OrderID {
	return OrderID{raw: strconv.FormatInt(id, 10)}
}

func (id OrderID) IsZero() bool {
	return id.raw == ""
}

// String returns the id the way a person would write it, without json quoting.
func (id OrderID) String() string {
	if len(id.raw) > 0 && id.raw[0] == '"' {
		var s string
		if json.Unmarshal([]byte(id.raw), &s) == nil {
			return s
		}
	}
	return id.raw
}

func (id OrderID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return []byte(id.raw), nil
}

func (id *OrderID) UnmarshalJSON(data []byte) error {
	parsed, err := ParseOrderID(data)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
