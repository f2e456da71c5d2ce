// Package guest binds the FDB C client exports of a wazero module.
//
// A Client reads the result arrays of resolved futures out of the guest's
// linear memory and hands them to package fdb together with a reference
// that calls fdb_future_destroy once the last record is released.
//
//	client, err := guest.NewClient(ctx, mod, nil)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	kvs, err := client.KeyValues(ctx, fut)
//	if err != nil {
//	    if code, ok := errors.Code(err); ok {
//	        // fdb_error_t from the guest
//	    }
//	    return err
//	}
//	defer kvs.Close()
//
// The client never waits on a future; callers pass futures that are already
// ready. Nothing is retried.
package guest
