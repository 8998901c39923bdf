package db

import "testing"

func TestPoolOptionDefaults(t *testing.T) {
	cases := []struct {
		in   PoolOptions
		want PoolOptions
	}{
		{PoolOptions{}, PoolOptions{MaxConns: 20, MinConns: 2, ApplicationName: "shopsim"}},
		{PoolOptions{MaxConns: 1}, PoolOptions{MaxConns: 1, MinConns: 1, ApplicationName: "shopsim"}},
		{PoolOptions{MaxConns: 8, MinConns: 9, ApplicationName: "econ-worker"}, PoolOptions{MaxConns: 8, MinConns: 2, ApplicationName: "econ-worker"}},
	}
	for _, tc := range cases {
		if got := tc.in.withDefaults(); got != tc.want {
			t.Fatalf("withDefaults(%+v) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}
