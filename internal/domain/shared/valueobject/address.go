package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// AddressType labels an address in the customer's address book
type AddressType string

const (
	AddressTypeHome  AddressType = "home"
	AddressTypeWork  AddressType = "work"
	AddressTypeOther AddressType = "other"
)

// IsValid checks if the address type is recognised
func (t AddressType) IsValid() bool {
	switch t {
	case AddressTypeHome, AddressTypeWork, AddressTypeOther:
		return true
	}
	return false
}

var (
	pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)
	mobilePattern  = regexp.MustCompile(`^[6-9][0-9]{9}$`)
)

// Address validation errors
var (
	ErrAddressNameRequired   = errors.New("recipient name is required")
	ErrAddressStreetRequired = errors.New("street is required")
	ErrAddressCityRequired   = errors.New("city is required")
	ErrAddressStateRequired  = errors.New("state is required")
	ErrInvalidPincode        = errors.New("pincode must be 6 digits and cannot start with 0")
	ErrInvalidPhone          = errors.New("phone must be a 10 digit Indian mobile number")
	ErrInvalidAddressType    = errors.New("address type must be home, work or other")
)

// PostalAddress is a value object for an Indian delivery address.
// It is used both in the address book and as the shipping snapshot on orders
type PostalAddress struct {
	Name     string      `json:"name"`
	Phone    string      `json:"phone"`
	Street   string      `json:"street"`
	City     string      `json:"city"`
	State    string      `json:"state"`
	Pincode  string      `json:"pincode"`
	Landmark string      `json:"landmark,omitempty"`
	Type     AddressType `json:"type"`
}

// NewPostalAddress trims and normalizes the input, then validates it
func NewPostalAddress(name, phone, street, city, state, pincode, landmark string, addrType AddressType) (PostalAddress, error) {
	a := PostalAddress{
		Name:     name,
		Phone:    phone,
		Street:   street,
		City:     city,
		State:    state,
		Pincode:  pincode,
		Landmark: landmark,
		Type:     addrType,
	}.Normalize()
	if err := a.Validate(); err != nil {
		return PostalAddress{}, err
	}
	return a, nil
}

// Normalize trims whitespace, strips +91/0 phone prefixes and defaults the type to home
func (a PostalAddress) Normalize() PostalAddress {
	a.Name = strings.TrimSpace(a.Name)
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Pincode = strings.TrimSpace(a.Pincode)
	a.Landmark = strings.TrimSpace(a.Landmark)
	a.Phone = NormalizePhone(a.Phone)
	if a.Type == "" {
		a.Type = AddressTypeHome
	}
	return a
}

// Validate reports the first missing or malformed field. Landmark is optional
func (a PostalAddress) Validate() error {
	switch {
	case a.Name == "":
		return ErrAddressNameRequired
	case !mobilePattern.MatchString(a.Phone):
		return ErrInvalidPhone
	case a.Street == "":
		return ErrAddressStreetRequired
	case a.City == "":
		return ErrAddressCityRequired
	case a.State == "":
		return ErrAddressStateRequired
	case !pincodePattern.MatchString(a.Pincode):
		return ErrInvalidPincode
	case !a.Type.IsValid():
		return ErrInvalidAddressType
	}
	return nil
}

// IsComplete reports whether the address can be shipped to
func (a PostalAddress) IsComplete() bool {
	return a.Validate() == nil
}

// IsEmpty returns true if no field is set
func (a PostalAddress) IsEmpty() bool {
	return a == PostalAddress{}
}

// Lines returns the address formatted for labels and invoices
func (a PostalAddress) Lines() []string {
	lines := []string{a.Name, a.Street}
	if a.Landmark != "" {
		lines = append(lines, "Near "+a.Landmark)
	}
	lines = append(lines, fmt.Sprintf("%s, %s - %s", a.City, a.State, a.Pincode), "Phone: "+a.Phone)
	return lines
}

// String returns a single-line representation
func (a PostalAddress) String() string {
	return strings.Join(a.Lines(), ", ")
}

// NormalizePhone strips spaces, dashes and the +91 / 0 prefixes
func NormalizePhone(phone string) string {
	p := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
	p = strings.TrimPrefix(p, "+91")
	if len(p) == 12 && strings.HasPrefix(p, "91") {
		p = p[2:]
	}
	if len(p) == 11 && strings.HasPrefix(p, "0") {
		p = p[1:]
	}
	return p
}

// ValidPincode reports whether s is a valid Indian pincode
func ValidPincode(s string) bool {
	return pincodePattern.MatchString(s)
}

// ValidMobile reports whether s is a valid 10 digit Indian mobile number after normalization
func ValidMobile(s string) bool {
	return mobilePattern.MatchString(NormalizePhone(s))
}

// Value implements driver.Valuer, storing the address as JSON
func (a PostalAddress) Value() (driver.Value, error) {
	if a.IsEmpty() {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for database retrieval
func (a *PostalAddress) Scan(value any) error {
	if value == nil {
		*a = PostalAddress{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into PostalAddress", value)
	}

	if len(data) == 0 || string(data) == "null" {
		*a = PostalAddress{}
		return nil
	}
	return json.Unmarshal(data, a)
}
