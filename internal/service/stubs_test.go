package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/dto"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/model"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/repository"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Productions ───────────────────────────────────────────────────────────────

type stubProductionRepo struct {
	byID map[uuid.UUID]*model.Production
}

func newStubProductionRepo() *stubProductionRepo {
	return &stubProductionRepo{byID: make(map[uuid.UUID]*model.Production)}
}

func (r *stubProductionRepo) add(p *model.Production) *model.Production {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	r.byID[p.ID] = &cp
	return p
}

func (r *stubProductionRepo) Create(_ context.Context, p *model.Production) error {
	for _, existing := range r.byID {
		if existing.LotNumber == p.LotNumber {
			return repository.ErrDuplicate
		}
	}
	r.add(p)
	return nil
}

func (r *stubProductionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Production, error) {
	p, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *stubProductionRepo) FindByLotNumber(_ context.Context, lot string) (*model.Production, error) {
	for _, p := range r.byID {
		if p.LotNumber == lot {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubProductionRepo) List(_ context.Context, f dto.ProductionFilter) ([]model.Production, int64, error) {
	var all []model.Production
	for _, p := range r.byID {
		if f.ScopeCompanyID != "" && (p.CompanyID == nil || p.CompanyID.String() != f.ScopeCompanyID) {
			continue
		}
		all = append(all, *p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].LotNumber < all[j].LotNumber })
	total := int64(len(all))
	start := (f.Page - 1) * f.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *stubProductionRepo) Update(_ context.Context, p *model.Production) error {
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *stubProductionRepo) Delete(_ context.Context, id uuid.UUID) error {
	p, ok := r.byID[id]
	if !ok || p.ImportQRAt != nil {
		return repository.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *stubProductionRepo) MarkGenerated(_ context.Context, id uuid.UUID, token string, at time.Time) error {
	p, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.ImportQRAt = &at
	p.QRToken = &token
	return nil
}

var _ repository.ProductionRepository = (*stubProductionRepo)(nil)

// ── Registers ─────────────────────────────────────────────────────────────────

// stubRegisterRepo keeps rows in a slice. With unique set it skips rows whose
// (production_id, serial_number) exists, like the Postgres upsert key; without
// it every insert appends.
type stubRegisterRepo struct {
	rows       []model.ProductionRegister
	unique     bool
	failFor    map[uuid.UUID]bool
	failAtCall int
	calls      int
}

func newStubRegisterRepo(unique bool) *stubRegisterRepo {
	return &stubRegisterRepo{unique: unique, failFor: make(map[uuid.UUID]bool)}
}

func (r *stubRegisterRepo) InsertBatch(ctx context.Context, rows []model.ProductionRegister) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.calls++
	if r.failAtCall > 0 && r.calls == r.failAtCall {
		return 0, fmt.Errorf("connection reset")
	}
	if len(rows) > 0 && r.failFor[rows[0].ProductionID] {
		return 0, fmt.Errorf("insert rejected")
	}
	var n int64
	for _, row := range rows {
		if r.unique && r.exists(row.ProductionID, row.SerialNumber) {
			continue
		}
		row.ID = uint64(len(r.rows) + 1)
		r.rows = append(r.rows, row)
		n++
	}
	return n, nil
}

func (r *stubRegisterRepo) exists(pid uuid.UUID, serial int64) bool {
	for _, row := range r.rows {
		if row.ProductionID == pid && row.SerialNumber == serial {
			return true
		}
	}
	return false
}

func (r *stubRegisterRepo) forProduction(pid uuid.UUID) []model.ProductionRegister {
	var out []model.ProductionRegister
	for _, row := range r.rows {
		if row.ProductionID == pid {
			out = append(out, row)
		}
	}
	return out
}

func (r *stubRegisterRepo) CountByProduction(_ context.Context, pid uuid.UUID) (int64, error) {
	return int64(len(r.forProduction(pid))), nil
}

func (r *stubRegisterRepo) ListByProduction(_ context.Context, pid uuid.UUID, page, limit int) ([]model.ProductionRegister, int64, error) {
	all := r.forProduction(pid)
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (r *stubRegisterRepo) FindBySerial(_ context.Context, serial int64, code string) ([]model.ProductionRegister, error) {
	var out []model.ProductionRegister
	for _, row := range r.rows {
		if row.SerialNumber == serial && (code == "" || row.Code == code) {
			out = append(out, row)
		}
	}
	return out, nil
}

var _ repository.RegisterRepository = (*stubRegisterRepo)(nil)

// ── Complaints ────────────────────────────────────────────────────────────────

type stubComplaintRepo struct {
	byID map[uuid.UUID]*model.Complaint
	inv  *stubInvestigationRepo
}

func newStubComplaintRepo(inv *stubInvestigationRepo) *stubComplaintRepo {
	return &stubComplaintRepo{byID: make(map[uuid.UUID]*model.Complaint), inv: inv}
}

func (r *stubComplaintRepo) Create(_ context.Context, c *model.Complaint) error {
	for _, existing := range r.byID {
		if existing.ComplaintNumber == c.ComplaintNumber {
			return repository.ErrDuplicate
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	r.byID[c.ID] = &cp
	return nil
}

func (r *stubComplaintRepo) get(c *model.Complaint) *model.Complaint {
	cp := *c
	if r.inv != nil {
		if inv, ok := r.inv.byComplaint[c.ID]; ok {
			invCopy := *inv
			cp.Investigation = &invCopy
		}
	}
	return &cp
}

func (r *stubComplaintRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Complaint, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.get(c), nil
}

func (r *stubComplaintRepo) FindByNumber(_ context.Context, number string) (*model.Complaint, error) {
	for _, c := range r.byID {
		if c.ComplaintNumber == number {
			return r.get(c), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubComplaintRepo) List(_ context.Context, f dto.ComplaintFilter) ([]model.Complaint, int64, error) {
	var out []model.Complaint
	for _, c := range r.byID {
		if f.ScopeCompanyID != "" && (c.CompanyID == nil || c.CompanyID.String() != f.ScopeCompanyID) {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(c.CustomerName), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (r *stubComplaintRepo) Update(_ context.Context, c *model.Complaint) error {
	cp := *c
	cp.Investigation = nil
	cp.UpdatedAt = time.Now()
	r.byID[c.ID] = &cp
	return nil
}

func (r *stubComplaintRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.byID, id)
	if r.inv != nil {
		delete(r.inv.byComplaint, id)
	}
	return nil
}

func (r *stubComplaintRepo) CountCreatedSince(_ context.Context, since time.Time) (int64, error) {
	var n int64
	for _, c := range r.byID {
		if !c.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *stubComplaintRepo) UpdateTx(_ *gorm.DB, c *model.Complaint) error {
	return r.Update(context.Background(), c)
}

func (r *stubComplaintRepo) DB() *gorm.DB { return nil }

var _ repository.ComplaintRepository = (*stubComplaintRepo)(nil)

type stubInvestigationRepo struct {
	byComplaint map[uuid.UUID]*model.Investigation
}

func newStubInvestigationRepo() *stubInvestigationRepo {
	return &stubInvestigationRepo{byComplaint: make(map[uuid.UUID]*model.Investigation)}
}

func (r *stubInvestigationRepo) Create(_ context.Context, inv *model.Investigation) error {
	if _, ok := r.byComplaint[inv.ComplaintID]; ok {
		return repository.ErrDuplicate
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	cp := *inv
	r.byComplaint[inv.ComplaintID] = &cp
	return nil
}

func (r *stubInvestigationRepo) FindByComplaintID(_ context.Context, id uuid.UUID) (*model.Investigation, error) {
	inv, ok := r.byComplaint[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (r *stubInvestigationRepo) Update(_ context.Context, inv *model.Investigation) error {
	cp := *inv
	r.byComplaint[inv.ComplaintID] = &cp
	return nil
}

func (r *stubInvestigationRepo) CreateTx(_ *gorm.DB, inv *model.Investigation) error {
	return r.Create(context.Background(), inv)
}

func (r *stubInvestigationRepo) UpdateTx(_ *gorm.DB, inv *model.Investigation) error {
	return r.Update(context.Background(), inv)
}

var _ repository.InvestigationRepository = (*stubInvestigationRepo)(nil)

// ── Users & roles ─────────────────────────────────────────────────────────────

type stubUserRepo struct {
	byID map[uuid.UUID]*model.User
}

func newStubUserRepo() *stubUserRepo { return &stubUserRepo{byID: make(map[uuid.UUID]*model.User)} }

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	for _, existing := range r.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.byID {
		if strings.EqualFold(u.Email, email) && u.Active {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *stubUserRepo) List(_ context.Context, includeInactive bool) ([]model.User, error) {
	var out []model.User
	for _, u := range r.byID {
		if u.Active || includeInactive {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *stubUserRepo) Update(_ context.Context, u *model.User) error {
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *stubUserRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Active = active
	return nil
}

func (r *stubUserRepo) UpsertByEmail(ctx context.Context, u *model.User) error {
	if existing, err := r.FindByEmail(ctx, u.Email); err == nil {
		u.ID = existing.ID
		return r.Update(ctx, u)
	}
	return r.Create(ctx, u)
}

var _ repository.UserRepository = (*stubUserRepo)(nil)

type stubRoleRepo struct {
	roles map[string]*model.Role
	seq   uint
}

func newStubRoleRepo() *stubRoleRepo { return &stubRoleRepo{roles: make(map[string]*model.Role)} }

func (r *stubRoleRepo) List(_ context.Context) ([]model.Role, error) {
	var out []model.Role
	for _, role := range r.roles {
		out = append(out, *role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *stubRoleRepo) FindByName(_ context.Context, name string) (*model.Role, error) {
	role, ok := r.roles[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *role
	return &cp, nil
}

func (r *stubRoleRepo) Create(_ context.Context, role *model.Role) error {
	if _, ok := r.roles[role.Name]; ok {
		return repository.ErrDuplicate
	}
	r.seq++
	role.ID = r.seq
	cp := *role
	r.roles[role.Name] = &cp
	return nil
}

func (r *stubRoleRepo) ReplacePermissions(_ context.Context, roleID uint, perms []string) error {
	for _, role := range r.roles {
		if role.ID == roleID {
			role.Permissions = nil
			for _, p := range perms {
				role.Permissions = append(role.Permissions, model.RoleHasPermission{RoleID: roleID, Permission: p})
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *stubRoleRepo) Ensure(ctx context.Context, name, description string, perms []string) error {
	role, ok := r.roles[name]
	if !ok {
		return r.Create(ctx, &model.Role{Name: name, Description: description, Permissions: permissionRows(perms)})
	}
	have := make(map[string]bool)
	for _, p := range role.Permissions {
		have[p.Permission] = true
	}
	for _, p := range perms {
		if !have[p] {
			role.Permissions = append(role.Permissions, model.RoleHasPermission{RoleID: role.ID, Permission: p})
		}
	}
	return nil
}

func permissionRows(perms []string) []model.RoleHasPermission {
	out := make([]model.RoleHasPermission, len(perms))
	for i, p := range perms {
		out[i] = model.RoleHasPermission{Permission: p}
	}
	return out
}

var _ repository.RoleRepository = (*stubRoleRepo)(nil)

// ── Queues ────────────────────────────────────────────────────────────────────

type stubQueue struct {
	generation []worker.GenerationJobPayload
	acks       []worker.ComplaintAckPayload
	err        error
}

func (q *stubQueue) EnqueueGeneration(_ context.Context, p worker.GenerationJobPayload) error {
	if q.err != nil {
		return q.err
	}
	q.generation = append(q.generation, p)
	return nil
}

func (q *stubQueue) EnqueueComplaintAck(_ context.Context, p worker.ComplaintAckPayload) error {
	if q.err != nil {
		return q.err
	}
	q.acks = append(q.acks, p)
	return nil
}

// ── Fixtures ──────────────────────────────────────────────────────────────────

// stubVerifyCache keeps entries in memory under the same versioned keys as the
// Redis cache.
type stubVerifyCache struct {
	version       int64
	entries       map[string][]byte
	ttls          map[string]time.Duration
	invalidations int
}

var _ VerifyCache = (*stubVerifyCache)(nil)

func newStubVerifyCache() *stubVerifyCache {
	return &stubVerifyCache{entries: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (c *stubVerifyCache) Get(_ context.Context, serial int64, code string) ([]byte, bool) {
	b, ok := c.entries[verifyCacheKey(c.version, serial, code)]
	return b, ok
}

func (c *stubVerifyCache) Set(_ context.Context, serial int64, code string, value []byte) {
	key := verifyCacheKey(c.version, serial, code)
	c.entries[key] = value
	c.ttls[key] = verifyCacheTTLFor(code)
}

func (c *stubVerifyCache) Invalidate(context.Context) {
	c.version++
	c.invalidations++
}

func newProduction(lot string, quantity int, serial string) *model.Production {
	return &model.Production{
		ID:                    uuid.New(),
		LotNumber:             lot,
		Variety:               "Hibrida P-21",
		SeedClass:             "BR",
		Code1:                 "A",
		Code2:                 "B",
		Code3:                 "C",
		Code4:                 "1",
		LotTotal:              quantity,
		LabResultSerialNumber: serial,
		PurityPct:             decimal.NewFromFloat(99.5),
		GerminationPct:        decimal.NewFromInt(90),
	}
}

func strPtr(s string) *string { return &s }
