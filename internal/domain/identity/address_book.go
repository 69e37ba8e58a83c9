package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/shared"
	"github.com/wellnest/backend/internal/domain/shared/valueobject"
)

// MaxAddresses caps the size of a customer's address book
const MaxAddresses = 10

// ErrAddressNotFound is returned when an address id is not in the user's book
var ErrAddressNotFound = shared.NewDomainError("ADDRESS_NOT_FOUND", "Address not found")

// Address is an entry in the address book
type Address struct {
	ID uuid.UUID
	valueobject.PostalAddress
	IsDefault bool
	CreatedAt time.Time
}

// AddAddress appends a validated address. The first address is always the
// default; makeDefault moves the default flag to the new entry.
func (u *User) AddAddress(addr valueobject.PostalAddress, makeDefault bool) (*Address, error) {
	addr = addr.Normalize()
	if err := addr.Validate(); err != nil {
		return nil, shared.WrapDomainError("INVALID_ADDRESS", err.Error(), err)
	}
	if len(u.Addresses) >= MaxAddresses {
		return nil, shared.NewDomainError("ADDRESS_LIMIT", "Address book is full")
	}

	entry := Address{
		ID:            uuid.New(),
		PostalAddress: addr,
		CreatedAt:     time.Now(),
	}
	u.Addresses = append(u.Addresses, entry)
	if makeDefault || len(u.Addresses) == 1 {
		u.setDefault(entry.ID)
	}
	u.UpdatedAt = time.Now()
	return u.address(entry.ID), nil
}

// UpdateAddress replaces the postal fields of an entry. makeDefault moves the
// default flag to it; passing false never clears an existing default.
func (u *User) UpdateAddress(id uuid.UUID, addr valueobject.PostalAddress, makeDefault bool) (*Address, error) {
	entry := u.address(id)
	if entry == nil {
		return nil, ErrAddressNotFound
	}
	addr = addr.Normalize()
	if err := addr.Validate(); err != nil {
		return nil, shared.WrapDomainError("INVALID_ADDRESS", err.Error(), err)
	}
	entry.PostalAddress = addr
	if makeDefault {
		u.setDefault(id)
	}
	u.UpdatedAt = time.Now()
	return u.address(id), nil
}

// SetDefaultAddress makes id the only default address
func (u *User) SetDefaultAddress(id uuid.UUID) error {
	if u.address(id) == nil {
		return ErrAddressNotFound
	}
	u.setDefault(id)
	u.UpdatedAt = time.Now()
	return nil
}

// RemoveAddress deletes an entry. Removing the default promotes the most
// recently added remaining address.
func (u *User) RemoveAddress(id uuid.UUID) error {
	idx := -1
	for i := range u.Addresses {
		if u.Addresses[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrAddressNotFound
	}
	wasDefault := u.Addresses[idx].IsDefault
	u.Addresses = append(u.Addresses[:idx], u.Addresses[idx+1:]...)
	if wasDefault && len(u.Addresses) > 0 {
		u.setDefault(u.Addresses[len(u.Addresses)-1].ID)
	}
	u.UpdatedAt = time.Now()
	return nil
}

// DefaultAddress returns the default entry, if any
func (u *User) DefaultAddress() (*Address, bool) {
	for i := range u.Addresses {
		if u.Addresses[i].IsDefault {
			return &u.Addresses[i], true
		}
	}
	return nil, false
}

// FindAddress looks up an entry by id
func (u *User) FindAddress(id uuid.UUID) (*Address, bool) {
	a := u.address(id)
	return a, a != nil
}

func (u *User) address(id uuid.UUID) *Address {
	for i := range u.Addresses {
		if u.Addresses[i].ID == id {
			return &u.Addresses[i]
		}
	}
	return nil
}

func (u *User) setDefault(id uuid.UUID) {
	for i := range u.Addresses {
		u.Addresses[i].IsDefault = u.Addresses[i].ID == id
	}
}
