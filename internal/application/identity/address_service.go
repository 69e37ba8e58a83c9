package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/wellnest/backend/internal/domain/identity"
)

// AddressService manages a customer's address book
type AddressService struct {
	userRepo identity.UserRepository
}

// NewAddressService creates a new AddressService
func NewAddressService(userRepo identity.UserRepository) *AddressService {
	return &AddressService{userRepo: userRepo}
}

// List returns the address book
func (s *AddressService) List(ctx context.Context, userID uuid.UUID) ([]AddressResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ToAddressResponses(user.Addresses), nil
}

// Add appends an address
func (s *AddressService) Add(ctx context.Context, userID uuid.UUID, in AddressInput) ([]AddressResponse, error) {
	return s.mutate(ctx, userID, func(u *identity.User) error {
		_, err := u.AddAddress(in.PostalAddress(), in.IsDefault)
		return err
	})
}

// Update replaces an address
func (s *AddressService) Update(ctx context.Context, userID, addressID uuid.UUID, in AddressInput) ([]AddressResponse, error) {
	return s.mutate(ctx, userID, func(u *identity.User) error {
		_, err := u.UpdateAddress(addressID, in.PostalAddress(), in.IsDefault)
		return err
	})
}

// Remove deletes an address
func (s *AddressService) Remove(ctx context.Context, userID, addressID uuid.UUID) ([]AddressResponse, error) {
	return s.mutate(ctx, userID, func(u *identity.User) error {
		return u.RemoveAddress(addressID)
	})
}

// SetDefault makes an address the default
func (s *AddressService) SetDefault(ctx context.Context, userID, addressID uuid.UUID) ([]AddressResponse, error) {
	return s.mutate(ctx, userID, func(u *identity.User) error {
		return u.SetDefaultAddress(addressID)
	})
}

func (s *AddressService) mutate(ctx context.Context, userID uuid.UUID, fn func(u *identity.User) error) ([]AddressResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(user); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return ToAddressResponses(user.Addresses), nil
}
