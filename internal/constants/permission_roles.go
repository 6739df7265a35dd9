package constants

import roles "caskmarket-backend/internal/pkg/constants"

// PermissionRoles maps each permission to the roles allowed to perform it.
// Ownership of the target resource is checked separately by the authorizer.
var PermissionRoles = map[string][]string{
	ViewListing:         {roles.Buyer, roles.Seller, roles.Admin},
	CreateListing:       {roles.Seller, roles.Admin},
	EditListing:         {roles.Seller, roles.Admin},
	ModerateListing:     {roles.Admin},
	CreateReservation:   {roles.Buyer},
	ViewReservation:     {roles.Buyer, roles.Seller, roles.Admin},
	CancelReservation:   {roles.Buyer, roles.Seller, roles.Admin},
	ConfirmReservation:  {roles.Admin},
	ExtendReservation:   {roles.Admin},
	ListAllReservations: {roles.Admin},
	CreateOrder:         {roles.Buyer},
	ViewOrder:           {roles.Buyer, roles.Seller, roles.Admin},
	PayOrder:            {roles.Buyer},
	ConfirmReceipt:      {roles.Buyer, roles.Admin},
	ConfirmPayment:      {roles.Admin},
	DispatchOrder:       {roles.Admin},
	ReleaseOrder:        {roles.Admin},
	RefundOrder:         {roles.Admin},
	ListAllOrders:       {roles.Admin},
	ViewLedger:          {roles.Buyer, roles.Admin},
	ManageFees:          {roles.Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	allowed, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}
