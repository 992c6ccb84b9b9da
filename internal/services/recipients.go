package services

import (
	"context"

	"restocheck/internal/models"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserSource is the slice of the user store recipient resolution needs.
type UserSource interface {
	FindByRole(ctx context.Context, role models.UserRole, accountID primitive.ObjectID) ([]models.User, error)
	AccountIDFor(ctx context.Context, userID primitive.ObjectID) (primitive.ObjectID, error)
}

// fallbackEmails and fallbackPhones are used when a role query fails or
// matches nobody, so a scheduled delivery can still attempt a best effort.
// TODO: replace with an unresolved-recipients error surfaced to the admin
// dashboard; silently sending to placeholder contacts can mask an outage.
var fallbackEmails = map[models.RecipientRole][]string{
	models.RecipientSuperAdmin:      {"superadmin@restocheck.app"},
	models.RecipientOwner:           {"owner@restocheck.app"},
	models.RecipientDistrictManager: {"district@restocheck.app"},
	models.RecipientGeneralManager:  {"manager@restocheck.app"},
	models.RecipientEmployee:        {"employee@restocheck.app"},
}

var fallbackPhones = map[models.RecipientRole][]string{
	models.RecipientSuperAdmin:      {"+10000000001"},
	models.RecipientOwner:           {"+10000000002"},
	models.RecipientDistrictManager: {"+10000000003"},
	models.RecipientGeneralManager:  {"+10000000004"},
	models.RecipientEmployee:        {"+10000000005"},
}

// RecipientResolver maps notification role flags to concrete contacts for an
// account. It never returns an error: resolution failures degrade to the
// per-role fallback lists.
type RecipientResolver struct {
	users UserSource
}

func NewRecipientResolver(users UserSource) *RecipientResolver {
	return &RecipientResolver{users: users}
}

func (r *RecipientResolver) Emails(ctx context.Context, recipients models.NotificationRecipients, accountID primitive.ObjectID) []string {
	return r.resolve(ctx, recipients, accountID, func(user models.User) string { return user.Email }, fallbackEmails)
}

func (r *RecipientResolver) Phones(ctx context.Context, recipients models.NotificationRecipients, accountID primitive.ObjectID) []string {
	return r.resolve(ctx, recipients, accountID, func(user models.User) string { return user.Phone }, fallbackPhones)
}

func (r *RecipientResolver) resolve(
	ctx context.Context,
	recipients models.NotificationRecipients,
	accountID primitive.ObjectID,
	contact func(models.User) string,
	fallbacks map[models.RecipientRole][]string,
) []string {
	var out []string
	seen := map[string]bool{}

	for _, recipientRole := range recipients.Enabled() {
		role, ok := models.UserRoleFor(recipientRole)
		if !ok {
			log.Warnf("unknown recipient role %q skipped", recipientRole)
			continue
		}

		users, err := r.users.FindByRole(ctx, role, accountID)
		if err != nil || len(users) == 0 {
			if err != nil {
				log.WithFields(log.Fields{
					"role":    role,
					"account": accountID.Hex(),
				}).Warnf("recipient lookup failed, using fallback list: %v", err)
			} else {
				log.WithFields(log.Fields{
					"role":    role,
					"account": accountID.Hex(),
				}).Warn("no users matched recipient role, using fallback list")
			}
			for _, addr := range fallbacks[recipientRole] {
				if !seen[addr] {
					seen[addr] = true
					out = append(out, addr)
				}
			}
			continue
		}

		for _, user := range users {
			addr := contact(user)
			if addr != "" && !seen[addr] {
				seen[addr] = true
				out = append(out, addr)
			}
		}
	}

	return out
}

// AccountFor resolves the owning account of a config creator, best effort.
func (r *RecipientResolver) AccountFor(ctx context.Context, createdBy primitive.ObjectID) primitive.ObjectID {
	if createdBy.IsZero() {
		return primitive.NilObjectID
	}
	accountID, err := r.users.AccountIDFor(ctx, createdBy)
	if err != nil {
		log.Warnf("failed to resolve owning account for %s: %v", createdBy.Hex(), err)
		return primitive.NilObjectID
	}
	return accountID
}
