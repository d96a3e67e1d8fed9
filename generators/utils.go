package generators

const K = 1 << 10
