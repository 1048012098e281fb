package services

import (
	"context"
	"strconv"
	"time"

	"workshop-system/internal/entities"
	apperrors "workshop-system/pkg/errors"
	"workshop-system/pkg/types"

	"github.com/jackc/pgx/v5"
)

// Фейки репозиториев в памяти. Транзакционные методы получают nil pgx.Tx:
// фейковый txManager просто вызывает колбэк.

type fakeTxManager struct {
	failWith error
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if m.failWith != nil {
		return m.failWith
	}
	return fn(nil)
}

type fakeNumberingRepo struct {
	counters map[string]int64
}

func newFakeNumberingRepo() *fakeNumberingRepo {
	return &fakeNumberingRepo{counters: make(map[string]int64)}
}

func (r *fakeNumberingRepo) NextSequenceInTx(ctx context.Context, tx pgx.Tx, scope string) (int64, error) {
	r.counters[scope]++
	return r.counters[scope], nil
}

type fakeUserRepo struct {
	users map[uint64]*entities.User
}

func newFakeUserRepo(users ...*entities.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uint64]*entities.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uint64) (*entities.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) FindByLogin(ctx context.Context, login string) (*entities.User, error) {
	for _, u := range r.users {
		if u.Login == login {
			return u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, user entities.User) (uint64, error) {
	id := uint64(len(r.users) + 1)
	user.ID = id
	r.users[id] = &user
	return id, nil
}

type fakeRequestRepo struct {
	requests map[uint64]*entities.Request
	nextID   uint64
}

func newFakeRequestRepo(requests ...*entities.Request) *fakeRequestRepo {
	r := &fakeRequestRepo{requests: make(map[uint64]*entities.Request)}
	for _, req := range requests {
		r.requests[req.ID] = req
		if req.ID > r.nextID {
			r.nextID = req.ID
		}
	}
	return r
}

func (r *fakeRequestRepo) CreateInTx(ctx context.Context, tx pgx.Tx, req entities.Request) (uint64, error) {
	r.nextID++
	req.ID = r.nextID
	r.requests[req.ID] = &req
	return req.ID, nil
}

func (r *fakeRequestRepo) FindByID(ctx context.Context, id uint64) (*entities.Request, error) {
	req, ok := r.requests[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	clone := *req
	return &clone, nil
}

func (r *fakeRequestRepo) List(ctx context.Context, filter types.Filter) ([]entities.Request, uint64, error) {
	out := make([]entities.Request, 0, len(r.requests))
	for _, req := range r.requests {
		out = append(out, *req)
	}
	return out, uint64(len(out)), nil
}

func (r *fakeRequestRepo) ListSdelkaByArrival(ctx context.Context, filter types.Filter) ([]entities.Request, uint64, error) {
	out := make([]entities.Request, 0)
	for _, req := range r.requests {
		if req.Status == entities.RequestStatusSdelka {
			out = append(out, *req)
		}
	}
	return out, uint64(len(out)), nil
}

func (r *fakeRequestRepo) UpdateProcessing(ctx context.Context, req *entities.Request) error {
	if _, ok := r.requests[req.ID]; !ok {
		return apperrors.ErrNotFound
	}
	clone := *req
	r.requests[req.ID] = &clone
	return nil
}

type fakeWorkOrderRepo struct {
	orders map[uint64]*entities.WorkOrder
	nextID uint64
}

func newFakeWorkOrderRepo(orders ...*entities.WorkOrder) *fakeWorkOrderRepo {
	r := &fakeWorkOrderRepo{orders: make(map[uint64]*entities.WorkOrder)}
	for _, o := range orders {
		r.orders[o.ID] = o
		if o.ID > r.nextID {
			r.nextID = o.ID
		}
	}
	return r
}

func (r *fakeWorkOrderRepo) CreateInTx(ctx context.Context, tx pgx.Tx, order entities.WorkOrder) (uint64, error) {
	r.nextID++
	order.ID = r.nextID
	r.orders[order.ID] = &order
	return order.ID, nil
}

func (r *fakeWorkOrderRepo) FindByID(ctx context.Context, id uint64) (*entities.WorkOrder, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	clone := *o
	return &clone, nil
}

func (r *fakeWorkOrderRepo) List(ctx context.Context, filter types.Filter) ([]entities.WorkOrder, uint64, error) {
	out := make([]entities.WorkOrder, 0, len(r.orders))
	for _, o := range r.orders {
		if v, ok := filter.Filter["managerId"]; ok && v.(uint64) != o.ManagerID {
			continue
		}
		if v, ok := filter.Filter["masterId"]; ok {
			if o.MasterID == nil || *o.MasterID != v.(uint64) {
				continue
			}
		}
		out = append(out, *o)
	}
	return out, uint64(len(out)), nil
}

func (r *fakeWorkOrderRepo) UpdateFieldsInTx(ctx context.Context, tx pgx.Tx, order *entities.WorkOrder) error {
	if _, ok := r.orders[order.ID]; !ok {
		return apperrors.ErrNotFound
	}
	clone := *order
	r.orders[order.ID] = &clone
	return nil
}

func (r *fakeWorkOrderRepo) UpdateStatus(ctx context.Context, id uint64, status entities.WorkOrderStatus, startedAt, completedAt *time.Time) error {
	o, ok := r.orders[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	o.Status = status
	if startedAt != nil {
		o.StartedAt = startedAt
	}
	if completedAt != nil {
		o.CompletedAt = completedAt
	}
	return nil
}

func (r *fakeWorkOrderRepo) AppendPhotos(ctx context.Context, id uint64, kind string, photos []string) error {
	o, ok := r.orders[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	if kind == "after" {
		o.PhotosAfter = append(o.PhotosAfter, photos...)
	} else {
		o.PhotosBefore = append(o.PhotosBefore, photos...)
	}
	return nil
}

type fakeExecutorRepo struct {
	assignments map[uint64]*entities.WorkOrderExecutor
	nextID      uint64
}

func newFakeExecutorRepo(assignments ...*entities.WorkOrderExecutor) *fakeExecutorRepo {
	r := &fakeExecutorRepo{assignments: make(map[uint64]*entities.WorkOrderExecutor)}
	for _, a := range assignments {
		r.assignments[a.ID] = a
		if a.ID > r.nextID {
			r.nextID = a.ID
		}
	}
	return r
}

func (r *fakeExecutorRepo) BulkInsertInTx(ctx context.Context, tx pgx.Tx, assignments []entities.WorkOrderExecutor) error {
	for _, a := range assignments {
		r.nextID++
		a.ID = r.nextID
		clone := a
		r.assignments[a.ID] = &clone
	}
	return nil
}

func (r *fakeExecutorRepo) DeleteUnpaidByWorkTypesInTx(ctx context.Context, tx pgx.Tx, workOrderID uint64, workTypes []entities.WorkType) error {
	types := make(map[entities.WorkType]bool, len(workTypes))
	for _, wt := range workTypes {
		types[wt] = true
	}
	for id, a := range r.assignments {
		if a.WorkOrderID == workOrderID && types[a.WorkType] && !a.IsPaid {
			delete(r.assignments, id)
		}
	}
	return nil
}

func (r *fakeExecutorRepo) ListByWorkOrder(ctx context.Context, workOrderID uint64) ([]entities.WorkOrderExecutor, error) {
	out := make([]entities.WorkOrderExecutor, 0)
	for _, a := range r.assignments {
		if a.WorkOrderID == workOrderID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeExecutorRepo) FindByID(ctx context.Context, id uint64) (*entities.WorkOrderExecutor, error) {
	a, ok := r.assignments[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *fakeExecutorRepo) UpdateMetadata(ctx context.Context, id uint64, metadata entities.TaskMetadata) error {
	a, ok := r.assignments[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	a.Metadata = metadata
	return nil
}

func (r *fakeExecutorRepo) UpdateAmountInTx(ctx context.Context, tx pgx.Tx, id uint64, amount float64) error {
	a, ok := r.assignments[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	a.Amount = amount
	return nil
}

func (r *fakeExecutorRepo) ListExecutorOrderIDs(ctx context.Context, executorID uint64) (map[uint64]bool, error) {
	out := make(map[uint64]bool)
	for _, a := range r.assignments {
		if a.ExecutorID == executorID {
			out[a.WorkOrderID] = true
		}
	}
	return out, nil
}

type fakeCache struct {
	values   map[string]string
	getErr   error
	setCalls int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, error) {
	if c.getErr != nil {
		return "", c.getErr
	}
	v, ok := c.values[key]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return v, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.setCalls++
	c.values[key] = value.(string)
	return nil
}

func (c *fakeCache) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

func (c *fakeCache) Incr(ctx context.Context, key string) (int64, error) {
	n, _ := strconv.ParseInt(c.values[key], 10, 64)
	n++
	c.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (c *fakeCache) Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	_, ok := c.values[key]
	return ok, nil
}

type fakeNotifier struct {
	failWith error
	sent     chan string
}

func newFakeNotifier(failWith error) *fakeNotifier {
	return &fakeNotifier{failWith: failWith, sent: make(chan string, 10)}
}

func (n *fakeNotifier) SendMessage(ctx context.Context, chatID int64, text string) error {
	n.sent <- text
	return n.failWith
}
