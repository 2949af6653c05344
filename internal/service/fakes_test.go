package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/product-links/internal/crm"
	"github.com/spec-kit/product-links/internal/domain"
	"github.com/spec-kit/product-links/internal/repository"
)

type fakeProductRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*domain.Product
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{items: map[int64]*domain.Product{}}
}

func (r *fakeProductRepo) Create(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *fakeProductRepo) Update(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *p
	r.items[p.ID] = &cp
	return nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) GetByCRMID(_ context.Context, crmID int64) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.items {
		if p.CRMID == crmID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeProductRepo) sorted(match func(*domain.Product) bool) []domain.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Product
	for _, p := range r.items {
		if match(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (r *fakeProductRepo) List(_ context.Context, f repository.ProductFilter) ([]domain.Product, int64, error) {
	all := r.sorted(func(p *domain.Product) bool {
		if f.ActiveOnly && !p.IsActive {
			return false
		}
		if f.CRMID != nil && p.CRMID != *f.CRMID {
			return false
		}
		if f.NameQuery != nil && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(*f.NameQuery)) {
			return false
		}
		return true
	})
	total := int64(len(all))
	if f.Offset >= len(all) {
		return nil, total, nil
	}
	end := f.Offset + f.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[f.Offset:end], total, nil
}

func (r *fakeProductRepo) Search(_ context.Context, term string, limit int) ([]domain.Product, error) {
	all := r.sorted(func(p *domain.Product) bool {
		return p.IsActive && strings.Contains(strings.ToLower(p.Name), strings.ToLower(term))
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

type fakeLinkRepo struct {
	mu       sync.Mutex
	nextID   int64
	items    map[int64]*domain.ProductLink
	products *fakeProductRepo
}

func newFakeLinkRepo(products *fakeProductRepo) *fakeLinkRepo {
	return &fakeLinkRepo{items: map[int64]*domain.ProductLink{}, products: products}
}

func (r *fakeLinkRepo) Create(_ context.Context, l *domain.ProductLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.SignedToken == l.SignedToken {
			*l = *existing
			return nil
		}
	}
	r.nextID++
	l.ID = r.nextID
	l.CreatedAt = time.Now()
	cp := *l
	r.items[l.ID] = &cp
	return nil
}

func (r *fakeLinkRepo) GetByID(_ context.Context, id int64) (*domain.ProductLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *l
	return &cp, nil
}

func (r *fakeLinkRepo) GetActiveByToken(_ context.Context, token string) (*domain.ProductLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.items {
		if l.SignedToken == token && l.IsActive {
			cp := *l
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeLinkRepo) List(ctx context.Context, limit, offset int) ([]repository.LinkListItem, int64, error) {
	r.mu.Lock()
	var all []domain.ProductLink
	for _, l := range r.items {
		all = append(all, *l)
	}
	r.mu.Unlock()
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	var out []repository.LinkListItem
	for i := offset; i < len(all) && len(out) < limit; i++ {
		item := repository.LinkListItem{ProductLink: all[i]}
		if p, err := r.products.GetByID(ctx, all[i].ProductID); err == nil {
			item.ProductName = p.Name
			item.ProductCRMID = p.CRMID
		}
		out = append(out, item)
	}
	return out, int64(len(all)), nil
}

func (r *fakeLinkRepo) RecordAccess(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.items[id]
	if !ok {
		return pgx.ErrNoRows
	}
	l.AccessCount++
	l.LastAccessedAt = &at
	return nil
}

type fakeStaffRepo struct {
	mu    sync.Mutex
	items map[string]*domain.StaffMember
}

func newFakeStaffRepo() *fakeStaffRepo {
	return &fakeStaffRepo{items: map[string]*domain.StaffMember{}}
}

func (r *fakeStaffRepo) Create(_ context.Context, s *domain.StaffMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = uuid.NewString()
	cp := *s
	r.items[s.ID] = &cp
	return nil
}

func (r *fakeStaffRepo) Update(_ context.Context, s *domain.StaffMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[s.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *s
	r.items[s.ID] = &cp
	return nil
}

func (r *fakeStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (r *fakeStaffRepo) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.items {
		if strings.EqualFold(s.Email, email) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type fakeCatalog struct {
	nextID  int64
	added   []crm.ProductFields
	addErr  error
	pages   map[int]crm.ListPage
	listErr error
	starts  []int
}

func (c *fakeCatalog) AddProduct(_ context.Context, fields crm.ProductFields) (int64, error) {
	if c.addErr != nil {
		return 0, c.addErr
	}
	c.nextID++
	c.added = append(c.added, fields)
	return 1000 + c.nextID, nil
}

func (c *fakeCatalog) ListProducts(_ context.Context, params crm.ListParams) (crm.ListPage, error) {
	c.starts = append(c.starts, params.Start)
	if c.listErr != nil {
		return crm.ListPage{}, c.listErr
	}
	return c.pages[params.Start], nil
}
