package models

import "fmt"

// Region is an RBA-administered area of the calendar.
type Region struct {
	ID      int    `db:"id" json:"id"`
	State   string `db:"state" json:"state"`
	City    string `db:"city" json:"city"`
	OrgClub string `db:"org_club" json:"orgClub"`
	RBAID   int    `db:"rba_id" json:"rbaId"`
	Active  bool   `db:"active" json:"active"`
}

// Name is the label used in region pickers and summaries.
func (r Region) Name() string {
	return fmt.Sprintf("%s %s", r.State, r.City)
}

// Descriptor is the form used in notifications.
func (r Region) Descriptor() string {
	return fmt.Sprintf("%s: %s", r.State, r.City)
}

// Club is an organizing club keyed by its ACP code.
type Club struct {
	ACPCode string `db:"acp_code" json:"acpCode"`
	Name    string `db:"name" json:"name"`
}

// Official is a RUSA member holding an office such as RBA.
type Official struct {
	MemberID  int    `db:"member_id" json:"memberId"`
	FirstName string `db:"first_name" json:"firstName"`
	LastName  string `db:"last_name" json:"lastName"`
	Email     string `db:"email" json:"email"`
}

// FullName joins first and last name.
func (o Official) FullName() string {
	return o.FirstName + " " + o.LastName
}
