package protocol

import "fmt"

// OperationKind enumerates the high-level operations the client runs.
type OperationKind uint8

const (
	OpRegisterConfidential OperationKind = iota + 1
	OpRegisterAnonymous
	OpDepositHidden
	OpDepositPublic
	OpClaimHidden
	OpClaimPublic
	OpTransfer
)

func (k OperationKind) String() string {
	switch k {
	case OpRegisterConfidential:
		return "register-confidential"
	case OpRegisterAnonymous:
		return "register-anonymous"
	case OpDepositHidden:
		return "deposit-hidden"
	case OpDepositPublic:
		return "deposit-public"
	case OpClaimHidden:
		return "claim-hidden"
	case OpClaimPublic:
		return "claim-public"
	case OpTransfer:
		return "transfer"
	default:
		return fmt.Sprintf("operation(%d)", uint8(k))
	}
}

// Purpose is the integer tag mixed into per-transaction viewing keys. The
// mapping to operation kinds is 1:1 and closed: an unknown kind is a
// configuration error, never a default.
type Purpose uint8

const (
	PurposeRegister      Purpose = 1
	PurposeDepositHidden Purpose = 2
	PurposeDepositPublic Purpose = 3
	PurposeClaimHidden   Purpose = 4
	PurposeClaimPublic   Purpose = 5
	PurposeTransfer      Purpose = 6
)

func PurposeFor(kind OperationKind) (Purpose, error) {
	switch kind {
	case OpRegisterConfidential, OpRegisterAnonymous:
		return PurposeRegister, nil
	case OpDepositHidden:
		return PurposeDepositHidden, nil
	case OpDepositPublic:
		return PurposeDepositPublic, nil
	case OpClaimHidden:
		return PurposeClaimHidden, nil
	case OpClaimPublic:
		return PurposeClaimPublic, nil
	case OpTransfer:
		return PurposeTransfer, nil
	default:
		return 0, fmt.Errorf("%w: no purpose code for %s", ErrConfiguration, kind)
	}
}
