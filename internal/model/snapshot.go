package model

// Snapshot is the full dataset at a point in time.
type Snapshot struct {
	Books   []Book   `json:"books"`
	Members []Member `json:"members"`
	Loans   []Loan   `json:"loans"`
}

// Clone returns a copy that shares no memory with s.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Books:   append([]Book{}, s.Books...),
		Members: append([]Member{}, s.Members...),
		Loans:   make([]Loan, len(s.Loans)),
	}
	for i, l := range s.Loans {
		if l.ReturnedOn != nil {
			returned := *l.ReturnedOn
			l.ReturnedOn = &returned
		}
		c.Loans[i] = l
	}
	return c
}

// Normalize replaces nil collections with empty ones.
func (s *Snapshot) Normalize() {
	if s.Books == nil {
		s.Books = []Book{}
	}
	if s.Members == nil {
		s.Members = []Member{}
	}
	if s.Loans == nil {
		s.Loans = []Loan{}
	}
}
