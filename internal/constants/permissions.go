package constants

const (
	ViewListing         = "view_listing"
	CreateListing       = "create_listing"
	EditListing         = "edit_listing"
	ModerateListing     = "moderate_listing"
	CreateReservation   = "create_reservation"
	ViewReservation     = "view_reservation"
	CancelReservation   = "cancel_reservation"
	ConfirmReservation  = "confirm_reservation"
	ExtendReservation   = "extend_reservation"
	ListAllReservations = "list_all_reservations"
	CreateOrder         = "create_order"
	ViewOrder           = "view_order"
	PayOrder            = "pay_order"
	ConfirmReceipt      = "confirm_receipt"
	ConfirmPayment      = "confirm_payment"
	DispatchOrder       = "dispatch_order"
	ReleaseOrder        = "release_order"
	RefundOrder         = "refund_order"
	ListAllOrders       = "list_all_orders"
	ViewLedger          = "view_ledger"
	ManageFees          = "manage_fees"
)
