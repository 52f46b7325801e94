package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/condoportal/backend/internal/domain/community"
	"github.com/condoportal/backend/internal/domain/ledger"
	"github.com/condoportal/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// MockPaymentRepository is a mock implementation of ledger.PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
	nextID int64
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id int64) (*ledger.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByIDForUpdate(ctx context.Context, id int64) (*ledger.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindAll(ctx context.Context, filter ledger.PaymentFilter) ([]ledger.Payment, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]ledger.Payment), args.Get(1).(int64), args.Error(2)
}

// Save assigns an ID to new payments the way the database would
func (m *MockPaymentRepository) Save(ctx context.Context, payment *ledger.Payment) error {
	args := m.Called(ctx, payment)
	if args.Error(0) == nil && payment.ID == 0 {
		m.nextID++
		payment.ID = 100 + m.nextID
	}
	return args.Error(0)
}

// MockMaintenanceRepository is a mock implementation of ledger.MaintenanceRepository
type MockMaintenanceRepository struct {
	mock.Mock
	mu    sync.Mutex
	saved []ledger.MaintenancePayment
}

func (m *MockMaintenanceRepository) FindByProperty(ctx context.Context, propertyID int64, year *int) ([]ledger.MaintenancePayment, error) {
	args := m.Called(ctx, propertyID, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.MaintenancePayment), args.Error(1)
}

func (m *MockMaintenanceRepository) FindByPeriods(ctx context.Context, propertyID int64, periods []ledger.Period) ([]ledger.MaintenancePayment, error) {
	args := m.Called(ctx, propertyID, periods)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.MaintenancePayment), args.Error(1)
}

func (m *MockMaintenanceRepository) FindPending(ctx context.Context, propertyID int64) ([]ledger.MaintenancePayment, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.MaintenancePayment), args.Error(1)
}

func (m *MockMaintenanceRepository) ExistingPeriods(ctx context.Context, propertyID int64) (map[ledger.Period]bool, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[ledger.Period]bool), args.Error(1)
}

func (m *MockMaintenanceRepository) FindByPaymentID(ctx context.Context, paymentID int64) ([]ledger.MaintenancePayment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.MaintenancePayment), args.Error(1)
}

// Save records a copy of every saved row for assertions
func (m *MockMaintenanceRepository) Save(ctx context.Context, row *ledger.MaintenancePayment) error {
	args := m.Called(ctx, row)
	if args.Error(0) == nil {
		m.mu.Lock()
		m.saved = append(m.saved, *row)
		m.mu.Unlock()
	}
	return args.Error(0)
}

// MockFineRepository is a mock implementation of ledger.FineRepository
type MockFineRepository struct {
	mock.Mock
	saved []ledger.Fine
}

func (m *MockFineRepository) FindByIDs(ctx context.Context, ids []int64) ([]ledger.Fine, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Fine), args.Error(1)
}

func (m *MockFineRepository) FindAll(ctx context.Context, filter ledger.FineFilter) ([]ledger.Fine, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Fine), args.Error(1)
}

func (m *MockFineRepository) FindByPaymentID(ctx context.Context, paymentID int64) ([]ledger.Fine, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Fine), args.Error(1)
}

func (m *MockFineRepository) Save(ctx context.Context, fine *ledger.Fine) error {
	args := m.Called(ctx, fine)
	if args.Error(0) == nil {
		m.saved = append(m.saved, *fine)
	}
	return args.Error(0)
}

// MockAgreementRepository is a mock implementation of ledger.AgreementRepository
type MockAgreementRepository struct {
	mock.Mock
	savedInstallments []ledger.Installment
}

func (m *MockAgreementRepository) FindByID(ctx context.Context, id int64) (*ledger.Agreement, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Agreement), args.Error(1)
}

func (m *MockAgreementRepository) FindInstallment(ctx context.Context, id int64) (*ledger.Installment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Installment), args.Error(1)
}

func (m *MockAgreementRepository) FindInstallmentsByIDs(ctx context.Context, ids []int64) ([]ledger.Installment, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Installment), args.Error(1)
}

func (m *MockAgreementRepository) FindInstallmentsByPaymentID(ctx context.Context, paymentID int64) ([]ledger.Installment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ledger.Installment), args.Error(1)
}

// Create assigns IDs to the agreement and its installments
func (m *MockAgreementRepository) Create(ctx context.Context, agreement *ledger.Agreement) error {
	args := m.Called(ctx, agreement)
	if args.Error(0) == nil {
		agreement.ID = 500
		for i := range agreement.Installments {
			agreement.Installments[i].ID = int64(501 + i)
			agreement.Installments[i].AgreementID = 500
		}
	}
	return args.Error(0)
}

func (m *MockAgreementRepository) UpdateStatus(ctx context.Context, agreement *ledger.Agreement) error {
	args := m.Called(ctx, agreement)
	return args.Error(0)
}

func (m *MockAgreementRepository) SaveInstallment(ctx context.Context, installment *ledger.Installment) error {
	args := m.Called(ctx, installment)
	if args.Error(0) == nil {
		m.savedInstallments = append(m.savedInstallments, *installment)
	}
	return args.Error(0)
}

// MockPropertyRepository is a mock implementation of community.PropertyRepository
type MockPropertyRepository struct {
	mock.Mock
}

func (m *MockPropertyRepository) FindByID(ctx context.Context, id int64) (*community.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*community.Property), args.Error(1)
}

func (m *MockPropertyRepository) FindCurrentForUser(ctx context.Context, userID int64, at time.Time) (*community.Property, error) {
	args := m.Called(ctx, userID, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*community.Property), args.Error(1)
}

func (m *MockPropertyRepository) FindAssignments(ctx context.Context, userID int64) ([]community.Assignment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]community.Assignment), args.Error(1)
}

func (m *MockPropertyRepository) FindCondominium(ctx context.Context, condominiumID int64) (*community.Condominium, error) {
	args := m.Called(ctx, condominiumID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*community.Condominium), args.Error(1)
}

// fakeUnitOfWork runs fn with the mocked repositories and reports whether
// the transaction would have committed
type fakeUnitOfWork struct {
	repos     ledger.Repositories
	committed int
	rolled    int
}

func (u *fakeUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, repos ledger.Repositories) error) error {
	if err := fn(ctx, u.repos); err != nil {
		u.rolled++
		return err
	}
	u.committed++
	return nil
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

// fixture wires every mock into the services under test
type fixture struct {
	payments    *MockPaymentRepository
	maintenance *MockMaintenanceRepository
	fines       *MockFineRepository
	agreements  *MockAgreementRepository
	properties  *MockPropertyRepository
	uow         *fakeUnitOfWork
	publisher   *recordingPublisher
	repos       ledger.Repositories
}

func newFixture() *fixture {
	f := &fixture{
		payments:    new(MockPaymentRepository),
		maintenance: new(MockMaintenanceRepository),
		fines:       new(MockFineRepository),
		agreements:  new(MockAgreementRepository),
		properties:  new(MockPropertyRepository),
		publisher:   &recordingPublisher{},
	}
	f.repos = ledger.Repositories{
		Payments:    f.payments,
		Maintenance: f.maintenance,
		Fines:       f.fines,
		Agreements:  f.agreements,
		Properties:  f.properties,
	}
	f.uow = &fakeUnitOfWork{repos: f.repos}
	return f
}

func (f *fixture) assertExpectations(t mock.TestingT) {
	f.payments.AssertExpectations(t)
	f.maintenance.AssertExpectations(t)
	f.fines.AssertExpectations(t)
	f.agreements.AssertExpectations(t)
	f.properties.AssertExpectations(t)
}
