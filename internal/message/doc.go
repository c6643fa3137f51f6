// Package message defines the typed messages exchanged with a device.
//
// A Message is a tagged variant: Kind selects which payload pointer is
// populated. Every message carries its Network, the raw Data bytes it was
// decoded from (or will be encoded to), and a Timestamp in nanoseconds since
// the device epoch of 2007-01-01 00:00:00 UTC.
//
//	switch msg.Kind {
//	case message.KindCAN:
//	    fmt.Printf("%03X %X\n", msg.CAN.ArbID, msg.Data)
//	case message.KindSerialNumber:
//	    fmt.Println(msg.SerialNumber.DeviceSerial)
//	}
//
// Messages are shared by pointer between every callback and the polling
// queue that receives them. They are never modified after dispatch.
package message
