package customers

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/quoteflow/quoteflow-backend/pkg/db/models"
	pkgerrors "github.com/quoteflow/quoteflow-backend/pkg/errors"
)

// Service owns a contractor's customer directory.
type Service struct {
	repo Repository
}

// NewService builds a customer service.
func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customer repo required")
	}
	return &Service{repo: repo}, nil
}

// CreateInput captures a new customer record.
type CreateInput struct {
	ContractorID uuid.UUID
	Name         string
	Email        *string
	Phone        *string
	Address      *string
}

// Create validates and persists a customer.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Customer, error) {
	if input.ContractorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contractor id is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if input.Email != nil && !strings.Contains(*input.Email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email")
	}

	customer := &models.Customer{
		ContractorID: input.ContractorID,
		Name:         strings.TrimSpace(input.Name),
		Email:        input.Email,
		Phone:        input.Phone,
		Address:      input.Address,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist customer")
	}
	return customer, nil
}

// Get returns a customer the contractor owns.
func (s *Service) Get(ctx context.Context, contractorID, customerID uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	if customer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	if customer.ContractorID != contractorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customer belongs to another contractor")
	}
	return customer, nil
}

// List returns all of a contractor's customers.
func (s *Service) List(ctx context.Context, contractorID uuid.UUID) ([]models.Customer, error) {
	if contractorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contractor id is required")
	}
	rows, err := s.repo.ListByContractor(ctx, contractorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	return rows, nil
}

// UpdateInput carries the editable customer fields. Nil means unchanged.
type UpdateInput struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

// Update applies partial changes to a customer the contractor owns.
func (s *Service) Update(ctx context.Context, contractorID, customerID uuid.UUID, input UpdateInput) (*models.Customer, error) {
	customer, err := s.Get(ctx, contractorID, customerID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
		}
		customer.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		if *input.Email != "" && !strings.Contains(*input.Email, "@") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email")
		}
		customer.Email = input.Email
	}
	if input.Phone != nil {
		customer.Phone = input.Phone
	}
	if input.Address != nil {
		customer.Address = input.Address
	}

	if err := s.repo.Update(ctx, customer); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer")
	}
	return customer, nil
}

// Delete removes a customer the contractor owns. Quotes keep their
// customer_id; the reference just dangles as null on read.
func (s *Service) Delete(ctx context.Context, contractorID, customerID uuid.UUID) error {
	if _, err := s.Get(ctx, contractorID, customerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, customerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete customer")
	}
	return nil
}
