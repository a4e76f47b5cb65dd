package workflow

import (
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Role string

const (
	RoleMember              Role = "member"
	RoleChairperson         Role = "chairperson"
	RoleLoanCommittee       Role = "loan_committee"
	RoleManagementCommittee Role = "management_committee"
	RoleAccountant          Role = "accountant"
	RoleSystemAdmin         Role = "system_admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleChairperson, RoleLoanCommittee, RoleManagementCommittee, RoleAccountant, RoleSystemAdmin:
		return true
	}
	return false
}

// Staff reports whether the role may own an approval stage.
func (r Role) Staff() bool { return r.Valid() && r != RoleMember }

type Order string

const (
	OrderFixed           Order = "fixed"
	OrderAdminControlled Order = "admin_controlled"
)

type Stage struct {
	Name      string `yaml:"name"`
	Role      Role   `yaml:"role"`
	Skippable bool   `yaml:"skippable"`
	// Enabled is only honoured for skippable stages under admin_controlled order.
	Enabled *bool `yaml:"enabled"`
}

type Product struct {
	Code               string  `yaml:"code"`
	Label              string  `yaml:"label"`
	MonthlyRatePercent float64 `yaml:"monthly_rate_percent"`
	MaxTermMonths      int     `yaml:"max_term_months"`
}

// MonthlyRate returns the rate as a fraction (1.5% -> 0.015).
func (p Product) MonthlyRate() decimal.Decimal {
	return decimal.NewFromFloat(p.MonthlyRatePercent).Div(decimal.NewFromInt(100))
}

type Policy struct {
	LoanToSavingsMultiple float64 `yaml:"loan_to_savings_multiple"`
	MaxPrincipal          float64 `yaml:"max_principal"`
	RepaymentTolerance    float64 `yaml:"repayment_tolerance"`
}

// Definition is the configured approval pipeline plus lending policy.
type Definition struct {
	ApprovalOrder Order     `yaml:"approval_order"`
	ServicingRole Role      `yaml:"servicing_role"`
	Stages        []Stage   `yaml:"stages"`
	Products      []Product `yaml:"products"`
	Policy        Policy    `yaml:"policy"`
}

const (
	defaultMultiple  = 3.0
	defaultTolerance = 0.01
)

// Default is the chairperson -> loan committee -> management committee pipeline.
func Default() *Definition {
	d := &Definition{
		ApprovalOrder: OrderFixed,
		ServicingRole: RoleAccountant,
		Stages: []Stage{
			{Name: "chairperson_review", Role: RoleChairperson},
			{Name: "loan_committee_review", Role: RoleLoanCommittee},
			{Name: "management_committee_review", Role: RoleManagementCommittee},
		},
		Products: []Product{
			{Code: "short_term", Label: "Short term loan", MonthlyRatePercent: 1.5, MaxTermMonths: 12},
			{Code: "long_term", Label: "Long term loan", MonthlyRatePercent: 1.0, MaxTermMonths: 60},
			{Code: "holiday", Label: "Holiday loan", MonthlyRatePercent: 2.0, MaxTermMonths: 6},
		},
		Policy: Policy{LoanToSavingsMultiple: defaultMultiple, RepaymentTolerance: defaultTolerance},
	}
	return d
}

// Parse decodes a YAML definition, fills defaults and validates it.
func Parse(data []byte) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse workflow definition: %w", err)
	}
	d.applyDefaults()
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Load reads a definition file. A missing file yields the default definition.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read workflow definition %s: %w", path, err)
	}
	return Parse(data)
}

func (d *Definition) applyDefaults() {
	if d.ApprovalOrder == "" {
		d.ApprovalOrder = OrderFixed
	}
	if d.ServicingRole == "" {
		d.ServicingRole = RoleAccountant
	}
	if d.Policy.LoanToSavingsMultiple == 0 {
		d.Policy.LoanToSavingsMultiple = defaultMultiple
	}
	if d.Policy.RepaymentTolerance == 0 {
		d.Policy.RepaymentTolerance = defaultTolerance
	}
	if len(d.Products) == 0 {
		d.Products = Default().Products
	}
}

func (d *Definition) Validate() error {
	if d.ApprovalOrder != OrderFixed && d.ApprovalOrder != OrderAdminControlled {
		return fmt.Errorf("workflow: unknown approval_order %q", d.ApprovalOrder)
	}
	if !d.ServicingRole.Staff() {
		return fmt.Errorf("workflow: servicing_role %q is not a staff role", d.ServicingRole)
	}
	if len(d.Stages) == 0 {
		return errors.New("workflow: at least one stage is required")
	}
	seen := make(map[string]struct{}, len(d.Stages))
	for i, s := range d.Stages {
		if s.Name == "" {
			return fmt.Errorf("workflow: stage %d has no name", i)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("workflow: duplicate stage name %q", s.Name)
		}
		seen[s.Name] = struct{}{}
		if !s.Role.Staff() {
			return fmt.Errorf("workflow: stage %q has invalid role %q", s.Name, s.Role)
		}
	}
	if len(d.Active()) == 0 {
		return errors.New("workflow: every stage is disabled")
	}
	codes := make(map[string]struct{}, len(d.Products))
	for _, p := range d.Products {
		if p.Code == "" {
			return errors.New("workflow: product without code")
		}
		if _, dup := codes[p.Code]; dup {
			return fmt.Errorf("workflow: duplicate product %q", p.Code)
		}
		codes[p.Code] = struct{}{}
		if p.MonthlyRatePercent < 0 || p.MaxTermMonths < 0 {
			return fmt.Errorf("workflow: product %q has negative terms", p.Code)
		}
	}
	if d.Policy.LoanToSavingsMultiple <= 0 || d.Policy.MaxPrincipal < 0 || d.Policy.RepaymentTolerance < 0 {
		return errors.New("workflow: invalid policy values")
	}
	return nil
}

// Active returns the effective stage list. Skippable stages only drop out
// under admin_controlled order with enabled set to false.
func (d *Definition) Active() []Stage {
	out := make([]Stage, 0, len(d.Stages))
	for _, s := range d.Stages {
		if d.ApprovalOrder == OrderAdminControlled && s.Skippable && s.Enabled != nil && !*s.Enabled {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (d *Definition) StageAt(i int) (Stage, bool) {
	active := d.Active()
	if i < 0 || i >= len(active) {
		return Stage{}, false
	}
	return active[i], true
}

func (d *Definition) LastIndex() int { return len(d.Active()) - 1 }

// IndicesForRole lists active stage indices owned by role.
func (d *Definition) IndicesForRole(role Role) []int {
	var out []int
	for i, s := range d.Active() {
		if s.Role == role {
			out = append(out, i)
		}
	}
	return out
}

func (d *Definition) Product(code string) (Product, bool) {
	for _, p := range d.Products {
		if p.Code == code {
			return p, true
		}
	}
	return Product{}, false
}

func (d *Definition) SavingsMultiple() decimal.Decimal {
	return decimal.NewFromFloat(d.Policy.LoanToSavingsMultiple)
}

func (d *Definition) MaxPrincipal() decimal.Decimal {
	return decimal.NewFromFloat(d.Policy.MaxPrincipal)
}

func (d *Definition) Tolerance() decimal.Decimal {
	return decimal.NewFromFloat(d.Policy.RepaymentTolerance)
}
