// Package fdb materializes the record arrays of resolved FDB futures.
//
// Three result shapes are supported: plain keys (FDBKey), key-value pairs
// (FDBKeyValue) and mapped key-values (FDBMappedKeyValue). Each array is copied
// out of the foreign arena into an aligned host buffer, and every span the
// records point at is checked once, at construction. Plain accessors never
// copy bytes and never fail on a live reference.
//
// # Borrowing
//
// An array owns its buffer and one reference to the future:
//
//	keys, err := fdb.NewKeys(ref, ptr, count, nil)
//	if err != nil {
//	    return err
//	}
//	defer keys.Close()
//
//	for i, k := range keys.All() {
//	    fmt.Println(i, k)
//	}
//
// Views returned by At and All read through the array's reference. They panic
// with a KindReleased error once the array is closed. Byte slices they return
// alias guest memory and must not be kept past Close or modified; the Copy
// accessors return owned slices for that.
//
// # Consuming
//
// IntoIter moves the buffer and the reference into a double-ended iterator:
//
//	it := keys.IntoIter()
//	defer it.Close()
//
//	first, _ := it.Next()
//	last, _ := it.NextBack()
//	fmt.Println(it.Len()) // count-2
//
// Every yielded row carries its own reference and lives independently of the
// iterator; release it when done. Closing the iterator frees the buffer once,
// whether or not any records remain unread. The future is destroyed when the
// iterator and every row have been released.
package fdb
