// Package capture records decoded traffic to disk and reads it back.
//
// A capture file is a plain sequence of CBOR-encoded Records with integer
// map keys. Every record carries the session ID of the Writer that produced
// it, so several sessions can be appended to one file and separated again
// with a Filter.
//
//	w, err := capture.Create("bus.cbor")
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//	com.AddMessageCallback(filter.ByKind(message.KindCAN), w.Callback())
//
// Records are read back with a Reader:
//
//	r, err := capture.Open("bus.cbor", capture.Filter{})
//	for {
//	    rec, err := r.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
package capture
