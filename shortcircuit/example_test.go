package shortcircuit_test

import (
	"fmt"
	"net/http/httptest"

	"github.com/zalando/fastlane/mediatype"
	"github.com/zalando/fastlane/shortcircuit"
)

func Example() {
	plan := shortcircuit.Compile([]shortcircuit.Candidate[string]{{
		Route: "listUsers",
		Rules: []shortcircuit.Rule{
			shortcircuit.PathExact("/users"),
			shortcircuit.Method("GET"),
			shortcircuit.Accept(mediatype.ApplicationJSON),
		},
	}})

	for _, method := range []string{"GET", "POST"} {
		r := httptest.NewRequest(method, "/users/", nil)
		r.Header.Set("Accept", "application/json")
		fmt.Println(method, plan.Execute(shortcircuit.FromHTTP(r, nil)))
	}

	// Output:
	// GET Matched(listUsers)
	// POST Indeterminate
}
