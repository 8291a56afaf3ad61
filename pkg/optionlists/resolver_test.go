package optionlists_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formwizard/pkg/model"
	"github.com/goliatone/go-formwizard/pkg/optionlists"
	"github.com/goliatone/go-formwizard/pkg/resolver"
)

func TestResolverAgainstLists(t *testing.T) {
	lists := optionlists.Lists{
		"cae": {
			{"code": "01110", "description": "Cultivo de cereais"},
			{"code": "01120", "description": "Cultivo de arroz"},
		},
	}
	srv := httptest.NewServer(optionlists.Handler(lists, optionlists.WithFields("code", "description")))
	defer srv.Close()

	res := resolver.New(resolver.WithHTTPClient(srv.Client()))
	ctx := context.Background()

	options, err := res.Resolve(ctx, &model.ExternalDataSource{
		Enabled:         true,
		Endpoint:        srv.URL + "/cae",
		Method:          model.MethodGet,
		RequestParams:   map[string]string{"q": "arroz"},
		ResponseMapping: &model.ResponseMapping{ValueField: "code", LabelField: "description"},
	})
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, "01120", options[0].Value)
	assert.Equal(t, "Cultivo de arroz", options[0].Label)
	assert.Equal(t, "01120", options[0].Record["code"])

	validate := &model.ExternalDataSource{Enabled: true, Endpoint: srv.URL + "/cae/validate", Method: model.MethodPost}
	verdict, err := res.Validate(ctx, validate, "01110")
	require.NoError(t, err)
	assert.True(t, verdict.IsValid)

	verdict, err = res.Validate(ctx, validate, "99999")
	require.NoError(t, err)
	assert.False(t, verdict.IsValid)
	assert.NotEmpty(t, verdict.Message)
}
