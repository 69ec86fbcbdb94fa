package services

import "agromart/internal/models"

// Actor is the authenticated principal performing an operation.
type Actor struct {
	UserID string
	Role   models.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// Access rules shared by the services.

func canCreateProduct(a Actor) bool {
	return a.Role == models.RoleFarmer || a.IsAdmin()
}

// only the owning farmer edits a listing
func canEditProduct(a Actor, p *models.Product) bool {
	return a.UserID != "" && a.UserID == p.SellerID
}

func canDeleteProduct(a Actor, p *models.Product) bool {
	return a.IsAdmin() || canEditProduct(a, p)
}

func canViewOrder(a Actor, o *models.Order) bool {
	return a.IsAdmin() || (a.UserID != "" && (o.CustomerID == a.UserID || o.HasSeller(a.UserID)))
}

// status and payment changes belong to the sellers on the order
func canUpdateOrder(a Actor, o *models.Order) bool {
	return a.IsAdmin() || (a.UserID != "" && o.HasSeller(a.UserID))
}

func canReview(a Actor, p *models.Product) bool {
	return a.UserID != "" && a.UserID != p.SellerID
}

func canModifyReview(a Actor, r *models.Review) bool {
	return a.IsAdmin() || (a.UserID != "" && r.AuthorID == a.UserID)
}
