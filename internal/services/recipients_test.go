package services

import (
	"context"
	"errors"
	"testing"

	"restocheck/internal/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeUsers struct {
	byRole map[models.UserRole][]models.User
	err    error

	accountID primitive.ObjectID
}

func (f *fakeUsers) FindByRole(ctx context.Context, role models.UserRole, accountID primitive.ObjectID) ([]models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byRole[role], nil
}

func (f *fakeUsers) AccountIDFor(ctx context.Context, userID primitive.ObjectID) (primitive.ObjectID, error) {
	if f.err != nil {
		return primitive.NilObjectID, f.err
	}
	return f.accountID, nil
}

func TestEmailsResolvedAndDeduped(t *testing.T) {
	shared := models.User{Email: "boss@example.com", Phone: "+15550000001"}
	users := &fakeUsers{byRole: map[models.UserRole][]models.User{
		models.RoleOwner:          {shared},
		models.RoleGeneralManager: {shared, {Email: "gm@example.com"}},
	}}

	r := NewRecipientResolver(users)
	emails := r.Emails(context.Background(), models.NotificationRecipients{
		Owner:          true,
		GeneralManager: true,
	}, primitive.NilObjectID)

	assert.Equal(t, []string{"boss@example.com", "gm@example.com"}, emails)
}

func TestEmailsFallBackWhenLookupFails(t *testing.T) {
	r := NewRecipientResolver(&fakeUsers{err: errors.New("mongo down")})

	emails := r.Emails(context.Background(), models.NotificationRecipients{Owner: true}, primitive.NilObjectID)
	assert.Equal(t, []string{"owner@restocheck.app"}, emails)
}

func TestPhonesFallBackWhenNobodyMatches(t *testing.T) {
	r := NewRecipientResolver(&fakeUsers{byRole: map[models.UserRole][]models.User{}})

	phones := r.Phones(context.Background(), models.NotificationRecipients{Employee: true}, primitive.NilObjectID)
	assert.Equal(t, []string{"+10000000005"}, phones)
}

func TestResolveSkipsBlankContacts(t *testing.T) {
	users := &fakeUsers{byRole: map[models.UserRole][]models.User{
		models.RoleOwner: {{Email: "boss@example.com", Phone: ""}},
	}}
	r := NewRecipientResolver(users)

	// The owner exists but has no phone; role matched, so no fallback, and
	// the blank contact is dropped.
	phones := r.Phones(context.Background(), models.NotificationRecipients{Owner: true}, primitive.NilObjectID)
	assert.Empty(t, phones)
}

func TestNoEnabledRolesResolvesNothing(t *testing.T) {
	r := NewRecipientResolver(&fakeUsers{})

	assert.Empty(t, r.Emails(context.Background(), models.NotificationRecipients{}, primitive.NilObjectID))
	assert.Empty(t, r.Phones(context.Background(), models.NotificationRecipients{}, primitive.NilObjectID))
}

func TestAccountFor(t *testing.T) {
	accountID := primitive.NewObjectID()
	r := NewRecipientResolver(&fakeUsers{accountID: accountID})

	assert.Equal(t, accountID, r.AccountFor(context.Background(), primitive.NewObjectID()))
	assert.Equal(t, primitive.NilObjectID, r.AccountFor(context.Background(), primitive.NilObjectID))

	failing := NewRecipientResolver(&fakeUsers{err: errors.New("mongo down")})
	assert.Equal(t, primitive.NilObjectID, failing.AccountFor(context.Background(), primitive.NewObjectID()))
}
