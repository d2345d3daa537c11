package models

type BillStatus string

const (
	BillStatusDraft   BillStatus = "draft"
	BillStatusUnpaid  BillStatus = "unpaid"
	BillStatusPartial BillStatus = "partial"
	BillStatusPaid    BillStatus = "paid"
)

// ItemType distinguishes new-metal sales from received old metal on a bill.
type ItemType string

const (
	ItemTypeSale     ItemType = "S"
	ItemTypeReceived ItemType = "REC"
)

type MetalKind string

const (
	MetalKindGold   MetalKind = "gold"
	MetalKindSilver MetalKind = "silver"
	MetalKindBar    MetalKind = "bar"
)

func (k MetalKind) IsValid() bool {
	switch k {
	case MetalKindGold, MetalKindSilver, MetalKindBar:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodUpi          PaymentMethod = "upi"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCheque       PaymentMethod = "cheque"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodUpi, PaymentMethodBankTransfer, PaymentMethodCheque:
		return true
	}
	return false
}
