package xjson_test

import (
	"os"

	"github.com/omeyang/xseckill/pkg/util/xjson"
)

func ExampleEncode() {
	_ = xjson.Encode(os.Stdout, map[string]int{"admitted": 20, "sold_out": 180})
	// Output:
	// {
	//   "admitted": 20,
	//   "sold_out": 180
	// }
}
