package dto

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validCreate() CreateScholarRequest {
	return CreateScholarRequest{
		Email:                        "a@x.com",
		Password:                     "supersecret",
		FirstName:                    "Ana",
		LastName:                     "Lopez",
		DOB:                          NewDate(2000, time.January, 15),
		IngressDate:                  NewDate(2020, time.February, 1),
		EmergencyContactName:         "Rosa Lopez",
		EmergencyContactPhone:        "7000-0002",
		EmergencyContactRelationship: "Madre",
		State:                        "ACTIVE",
		Addresses:                    []AddressInput{{StreetLine1: "Calle 1", DistrictID: 3, IsUrban: true}},
	}
}

func fieldErrors(t *testing.T, err error) []string {
	t.Helper()
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names = append(names, fe.Field())
	}
	return names
}

func TestCreateScholarRequestValidation(t *testing.T) {
	v := NewValidator()
	require.NoError(t, v.Struct(validCreate()))

	req := validCreate()
	req.DOB = Date{}
	req.EmergencyContactPhone = "1234567890123456"
	req.State = "RETIRED"
	req.Addresses[0].DistrictID = 0
	assert.ElementsMatch(t, []string{"dob", "emergencyContactPhone", "state", "districtId"}, fieldErrors(t, v.Struct(req)))
}

func TestUpdateScholarRequestSkipsAbsentFields(t *testing.T) {
	v := NewValidator()

	var req UpdateScholarRequest
	require.NoError(t, json.Unmarshal([]byte(`{"firstName":"X"}`), &req))
	require.NoError(t, v.Struct(req))
	assert.Empty(t, req.BlankRequiredFields())

	require.NoError(t, json.Unmarshal([]byte(`{"email":"not-an-email","dui":"12345678901"}`), &req))
	assert.ElementsMatch(t, []string{"email", "dui"}, fieldErrors(t, v.Struct(req)))

	req = UpdateScholarRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"lastName":"  ","gender":null}`), &req))
	require.NoError(t, v.Struct(req))
	assert.Equal(t, []string{"lastName"}, req.BlankRequiredFields())
	assert.True(t, req.Gender.Set)
}

func TestDateJSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2000-01-15"`), &d))
	assert.Equal(t, NewDate(2000, time.January, 15), d)

	require.NoError(t, json.Unmarshal([]byte(`"2000-01-15T18:30:00-06:00"`), &d))
	assert.Equal(t, NewDate(2000, time.January, 15), d)

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2000-01-15"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`"15/01/2000"`), &d))
}

func TestBankAccountPrimaryDefaultsTrue(t *testing.T) {
	no := false
	assert.True(t, BankAccountInput{}.Primary())
	assert.False(t, BankAccountInput{IsPrimary: &no}.Primary())
}
