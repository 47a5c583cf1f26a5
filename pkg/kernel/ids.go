package kernel

type TenantID string

func NewTenantID(id string) TenantID { return TenantID(id) }
func (t TenantID) String() string    { return string(t) }
func (t TenantID) IsEmpty() bool     { return string(t) == "" }

// SubjectID is the identity-provider subject ("sub" claim) of a principal.
type SubjectID string

func NewSubjectID(id string) SubjectID { return SubjectID(id) }
func (s SubjectID) String() string     { return string(s) }
func (s SubjectID) IsEmpty() bool      { return string(s) == "" }

type EndpointID string

func NewEndpointID(id string) EndpointID { return EndpointID(id) }
func (e EndpointID) String() string      { return string(e) }
func (e EndpointID) IsEmpty() bool       { return string(e) == "" }
