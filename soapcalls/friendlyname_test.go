package soapcalls

import (
	"context"
	"net/http/httptest"
	"testing"

	"stereoctl.app/stereoctl/dispatch/mocks"
)

func TestGetFriendlyName(t *testing.T) {
	fn := "Living Room Projector"
	testName := "GetFriendlyName"

	testServer := httptest.NewServer(NewBridgeServer(fn, &mocks.Transport{}))
	defer testServer.Close()

	friendly, err := GetFriendlyName(context.Background(), testServer.URL+DescriptionPath)
	if err != nil {
		t.Fatalf("%s: Failed to call GetFriendlyName due to %s", testName, err.Error())
	}

	if friendly != fn {
		t.Fatalf("%s: got: %s, want: %s.", testName, friendly, fn)
	}
}
