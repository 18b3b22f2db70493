package credential

// Package credential hosts the stable DTOs for verifiable credentials
// exchanged with dashboards and wallets. Keep these shapes versioned
// independently from internal persistence models.

// ContractVersion identifies the contract schema version for compatibility checks.
// Bump on breaking changes to the shapes below; consumers can pin or roll forward.
const ContractVersion = "v0.1.0"

// W3C context URIs carried by every credential issued here.
var DefaultContext = []string{
	"https://www.w3.org/2018/credentials/v1",
	"https://www.w3.org/2018/credentials/examples/v1",
}

// Status is the adjudication outcome recorded in an outcome credential.
type Status string

const (
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// NotAvailable is the sentinel for treatment fields that could not be
// denormalized because the evidence store was unreachable or the treatment
// credential was absent or malformed.
const NotAvailable = "N/A"

// Issuer identifies the credential issuer.
type Issuer struct {
	ID string `json:"id"`
}

// Subject is the credentialSubject of a settlement or rejection credential.
// Amounts are decimal strings of the smallest currency unit.
type Subject struct {
	ID               string `json:"id"` // beneficiary DID
	Role             string `json:"role"`
	CredentialType   string `json:"credentialType"`
	ClaimID          string `json:"claimId"`
	PolicyID         string `json:"policyId"`
	ProviderAddress  string `json:"providerAddress"`
	SettlementAmount string `json:"settlementAmount,omitempty"`
	ClaimAmount      string `json:"claimAmount,omitempty"`

	// Denormalized from the linked treatment credential, or NotAvailable.
	TreatmentDescription string `json:"treatmentDescription"`
	BillAmount           string `json:"billAmount"`
	TreatmentVcCid       string `json:"treatmentVcCid,omitempty"`

	Status          Status `json:"status"`
	RejectionReason string `json:"rejectionReason,omitempty"`
	SettlementDate  string `json:"settlementDate,omitempty"`
	RejectionDate   string `json:"rejectionDate,omitempty"`
	IssuedAt        string `json:"issuedAt"`
}

// Credential is the unsigned verifiable-credential payload.
type Credential struct {
	Context      []string `json:"@context"`
	ID           string   `json:"id"`
	Type         []string `json:"type"`
	Issuer       Issuer   `json:"issuer"`
	IssuanceDate string   `json:"issuanceDate"`
	Subject      Subject  `json:"credentialSubject"`
}

// Signed is a credential plus its JWT proof and, when persistence succeeded,
// the content identifier under which the signed form is stored.
type Signed struct {
	Credential Credential `json:"vc"`
	JWT        string     `json:"jwt"`
	CID        string     `json:"cid,omitempty"`
}
