package main

import (
	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/examples"
)

func main() {
	examples.ActorCriticChain()
}
