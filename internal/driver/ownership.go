package driver

import (
	"fmt"
	"strings"
)

// Ownership records who holds the underlying resource of a category.
//
// A category is either Owned (it created the resource and tears it down) or
// BorrowedBy another category (the resource belongs to someone else and must
// not be destroyed when this category is uninitialised). The zero value is
// Owned.
type Ownership struct {
	borrowed bool
	holder   Category
}

// Owned returns the ownership value for a category that owns its resource.
func Owned() Ownership {
	return Ownership{}
}

// BorrowedBy returns the ownership value for a category whose resource is
// held by holder.
func BorrowedBy(holder Category) Ownership {
	return Ownership{borrowed: true, holder: holder}
}

// Holder returns the holding category and true when borrowed.
func (o Ownership) Holder() (Category, bool) {
	return o.holder, o.borrowed
}

// String renders "owned" or "borrowed_by:<category>".
func (o Ownership) String() string {
	if !o.borrowed {
		return "owned"
	}
	return fmt.Sprintf("borrowed_by:%s", o.holder)
}

// MarshalText implements encoding.TextMarshaler.
func (o Ownership) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Ownership) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "owned" {
		*o = Owned()
		return nil
	}
	label, ok := strings.CutPrefix(s, "borrowed_by:")
	if !ok {
		return fmt.Errorf("invalid ownership %q", s)
	}
	holder, err := ParseCategory(label)
	if err != nil {
		return err
	}
	*o = BorrowedBy(holder)
	return nil
}
