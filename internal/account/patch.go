package account

// Scratch holds in-flight data of the current multi-step operation.
// It must be empty whenever the account is in StateMainMenu.
type Scratch struct {
	Amount        int64          `json:"amount,omitempty"`
	Method        *PaymentMethod `json:"method,omitempty"`
	NewMethodKind *MethodKind    `json:"new_method_kind,omitempty"`
	PickingCrypto bool           `json:"picking_crypto,omitempty"`
}

// IsEmpty reports whether no flow data is held.
func (s Scratch) IsEmpty() bool {
	return s.Amount == 0 && s.Method == nil && s.NewMethodKind == nil && !s.PickingCrypto
}

// Clone returns a copy that shares no pointers with s.
func (s Scratch) Clone() Scratch {
	out := s
	if s.Method != nil {
		m := *s.Method
		out.Method = &m
	}
	if s.NewMethodKind != nil {
		k := *s.NewMethodKind
		out.NewMethodKind = &k
	}
	return out
}

// MethodAppend appends Method to the named list.
type MethodAppend struct {
	List   MethodList
	Method PaymentMethod
}

// Patch is a partial update. Nil fields are left untouched; stores apply a patch as one
// indivisible operation and reject it when BalanceDelta would drive the balance below zero.
type Patch struct {
	State             *State
	Scratch           *Scratch
	DepositMethods    *[]PaymentMethod
	WithdrawalMethods *[]PaymentMethod
	BalanceDelta      int64
	Append            *MethodAppend
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.State == nil && p.Scratch == nil && p.DepositMethods == nil &&
		p.WithdrawalMethods == nil && p.BalanceDelta == 0 && p.Append == nil
}

// Reset is the patch that ends any flow: main menu with an empty scratch.
func Reset() Patch {
	return Patch{State: StatePtr(StateMainMenu), Scratch: &Scratch{}}
}

// Transition moves to st and replaces the scratch.
func Transition(st State, scratch Scratch) Patch {
	return Patch{State: StatePtr(st), Scratch: &scratch}
}

// StatePtr returns a pointer to st.
func StatePtr(st State) *State { return &st }
