// Package requester builds declarative HTTP API clients.
//
// A Client holds the host, the default headers and four hook strategies.
// Source turns a resource path plus a table of named endpoints into ready to
// call functions:
//
//	client, err := requester.New(requester.Config{Host: "https://api.example.com"})
//	users, err := client.Source("users", requester.Endpoints{
//	    "archive": requester.NewEndpoint(http.MethodPost, "users/:id/archive", "id"),
//	}, nil)
//
//	out, err := users.Get(ctx, requester.Data{"page": 2})      // GET users?page=2
//	out, err = users.Update(ctx, requester.Data{"id": 7, "name": "ada"})
//	out, err = users.Call(ctx, "archive", requester.Data{"id": 7})
//
// Every call compiles the endpoint into a Request, runs the BeforeRequest
// hook, dispatches through the Transport and turns the Response into an
// Outcome with the AfterResponse hook. Failures before a response exists go
// through OnTransportError; every other failure goes through OnError.
//
// Non-2xx responses surface as *ApplicationError carrying the decoded body.
// Status 413 is not an error: its text body is returned as the value.
package requester
